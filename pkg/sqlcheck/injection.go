// Package sqlcheck scans query bind parameters for SQL injection
// patterns before they reach a relational backend.
package sqlcheck

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a parameter that failed the scan.
type InjectionCheckResult struct {
	ParamName   string // name of the offending parameter
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckParameter scans a single parameter value. Only string values are
// scanned; numbers, booleans and other types cannot carry injection
// payloads. Returns nil when the value is clean.
func CheckParameter(name string, value any) *InjectionCheckResult {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if !isSQLi {
		return nil
	}

	return &InjectionCheckResult{
		ParamName:   name,
		Fingerprint: string(fingerprint),
	}
}

// CheckParameters scans every bind parameter and returns a result per
// offending value. An empty slice means all parameters are clean.
func CheckParameters(params map[string]any) []InjectionCheckResult {
	var results []InjectionCheckResult
	for name, value := range params {
		if r := CheckParameter(name, value); r != nil {
			results = append(results, *r)
		}
	}
	return results
}
