package lead

// Quiz-answer payloads are shallow maps with a handful of well-known nested
// keys. Merging is a union where the incoming submission wins on conflicting
// keys, except for the nested keys below which carry their own rules.
const (
	keyCalculatedResults = "calculated_results"
	keyLicensingInfo     = "licensing_info"
	keyLocationInfo      = "locationInfo"
	keyUTMParameters     = "utm_parameters"
	keyPhone             = "phone"
)

// mergeInput carries one submission's answer payload and the loose fields
// that fold into it.
type mergeInput struct {
	Answers           map[string]any
	CalculatedResults any
	LicensingInfo     any
	ZipCode           string
	State             string
	StateName         string
	PhoneNumber       string
	UTMParams         map[string]any
}

// mergeQuizAnswers folds an incoming submission into previously stored
// answers. Incoming keys override stored ones; calculated_results and
// licensing_info are replaced only when the incoming value is non-nil;
// locationInfo is rebuilt field-wise when any location field arrived;
// utm_parameters is always present, empty object when never supplied.
func mergeQuizAnswers(existing map[string]any, in mergeInput) map[string]any {
	merged := make(map[string]any, len(existing)+len(in.Answers)+4)
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range in.Answers {
		merged[k] = v
	}

	if in.CalculatedResults != nil {
		merged[keyCalculatedResults] = in.CalculatedResults
	}
	if in.LicensingInfo != nil {
		merged[keyLicensingInfo] = in.LicensingInfo
	}

	if in.ZipCode != "" || in.State != "" || in.StateName != "" {
		merged[keyLocationInfo] = mergeLocationInfo(asMap(existing[keyLocationInfo]), in)
	}

	if in.PhoneNumber != "" {
		merged[keyPhone] = in.PhoneNumber
	}

	if in.UTMParams != nil {
		merged[keyUTMParameters] = in.UTMParams
	} else if _, ok := merged[keyUTMParameters]; !ok {
		merged[keyUTMParameters] = map[string]any{}
	}

	return merged
}

// mergeLocationInfo overrides stored location fields with incoming non-empty
// values, keeping the stored value otherwise.
func mergeLocationInfo(existing map[string]any, in mergeInput) map[string]any {
	loc := map[string]any{
		"zipCode":   firstNonEmpty(in.ZipCode, asString(existing["zipCode"])),
		"state":     firstNonEmpty(in.State, asString(existing["state"])),
		"stateName": firstNonEmpty(in.StateName, asString(existing["stateName"])),
	}
	if in.LicensingInfo != nil {
		loc["licensing"] = in.LicensingInfo
	} else if lic, ok := existing["licensing"]; ok {
		loc["licensing"] = lic
	}
	return loc
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
