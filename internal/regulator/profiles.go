package regulator

// Built-in profiles for the regulators currently scraped. Config may
// override any field per regulator name.
var (
	ECB = Profile{
		Name:           "ECB",
		FullName:       "European Central Bank",
		BaseURL:        "https://www.ecb.europa.eu",
		LanguageMarker: "",
	}

	MAS = Profile{
		Name:     "MAS",
		FullName: "Monetary Authority of Singapore",
		BaseURL:  "https://www.mas.gov.sg",
	}

	Bundesbank = Profile{
		Name:     "BBK",
		FullName: "Deutsche Bundesbank",
		BaseURL:  "https://www.bundesbank.de",
	}
)

// Builtin returns the built-in profile for a regulator name, if any.
func Builtin(name string) (Profile, bool) {
	switch name {
	case ECB.Name:
		return ECB, true
	case MAS.Name:
		return MAS, true
	case Bundesbank.Name:
		return Bundesbank, true
	}
	return Profile{}, false
}
