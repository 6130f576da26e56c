package sanitizer

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

// Phone is a number split the way booking providers expect it.
type Phone struct {
	CountryCallingCode string
	Number             string
}

// SplitPhone separates raw into calling code and national number. An
// explicit callingCode (with or without "+") is used when raw carries no
// international prefix; defaultRegion applies when neither is present.
// Unparseable input keeps its digits under defaultRegion's calling code.
func SplitPhone(raw, callingCode, defaultRegion string) Phone {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Phone{}
	}

	region := strings.ToUpper(defaultRegion)
	if cc := digitsOnly(callingCode); cc != "" && !strings.HasPrefix(raw, "+") && !strings.HasPrefix(raw, "00") {
		if n, err := strconv.Atoi(cc); err == nil {
			if r := phonenumbers.GetRegionCodeForCountryCode(n); r != "" && r != "ZZ" {
				region = r
			}
		}
	}

	if num, err := phonenumbers.Parse(raw, region); err == nil {
		return Phone{
			CountryCallingCode: strconv.Itoa(int(num.GetCountryCode())),
			Number:             phonenumbers.GetNationalSignificantNumber(num),
		}
	}

	fallback := ""
	if code := phonenumbers.GetCountryCodeForRegion(region); code != 0 {
		fallback = strconv.Itoa(code)
	}
	return Phone{
		CountryCallingCode: fallback,
		Number:             digitsOnly(raw),
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}
