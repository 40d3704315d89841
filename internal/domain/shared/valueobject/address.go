package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CountryCode is an ISO 3166-1 alpha-2 country code
type CountryCode string

// isoCountryCodes is the set of recognized ISO 3166-1 alpha-2 codes.
// Fee and tax jurisdiction logic must never accept an unrecognized code.
var isoCountryCodes = map[CountryCode]struct{}{}

func init() {
	for _, code := range strings.Fields(
		"AD AE AF AG AI AL AM AO AQ AR AS AT AU AW AX AZ " +
			"BA BB BD BE BF BG BH BI BJ BL BM BN BO BQ BR BS BT BV BW BY BZ " +
			"CA CC CD CF CG CH CI CK CL CM CN CO CR CU CV CW CX CY CZ " +
			"DE DJ DK DM DO DZ EC EE EG EH ER ES ET FI FJ FK FM FO FR " +
			"GA GB GD GE GF GG GH GI GL GM GN GP GQ GR GS GT GU GW GY " +
			"HK HM HN HR HT HU ID IE IL IM IN IO IQ IR IS IT JE JM JO JP " +
			"KE KG KH KI KM KN KP KR KW KY KZ LA LB LC LI LK LR LS LT LU LV LY " +
			"MA MC MD ME MF MG MH MK ML MM MN MO MP MQ MR MS MT MU MV MW MX MY MZ " +
			"NA NC NE NF NG NI NL NO NP NR NU NZ OM " +
			"PA PE PF PG PH PK PL PM PN PR PS PT PW PY QA RE RO RS RU RW " +
			"SA SB SC SD SE SG SH SI SJ SK SL SM SN SO SR SS ST SV SX SY SZ " +
			"TC TD TF TG TH TJ TK TL TM TN TO TR TT TV TW TZ " +
			"UA UG UM US UY UZ VA VC VE VG VI VN VU WF WS YE YT ZA ZM ZW") {
		isoCountryCodes[CountryCode(code)] = struct{}{}
	}
}

// NewCountryCode validates and normalizes an ISO 3166-1 alpha-2 code
func NewCountryCode(code string) (CountryCode, error) {
	normalized := CountryCode(strings.ToUpper(strings.TrimSpace(code)))
	if _, ok := isoCountryCodes[normalized]; !ok {
		return "", fmt.Errorf("unrecognized ISO country code: %q", code)
	}
	return normalized, nil
}

// IsValid reports whether the code is a recognized ISO 3166-1 alpha-2 code
func (c CountryCode) IsValid() bool {
	_, ok := isoCountryCodes[c]
	return ok
}

// String returns the string representation of the country code
func (c CountryCode) String() string {
	return string(c)
}

// BillingAddress is a value object carrying the full address used for
// tax jurisdiction resolution. It is immutable.
type BillingAddress struct {
	Line1      string      `json:"line1"`
	Line2      string      `json:"line2,omitempty"`
	City       string      `json:"city"`
	State      string      `json:"state,omitempty"`
	PostalCode string      `json:"postal_code,omitempty"`
	Country    CountryCode `json:"country"`
}

// NewBillingAddress creates a validated billing address
func NewBillingAddress(line1, line2, city, state, postalCode, country string) (BillingAddress, error) {
	code, err := NewCountryCode(country)
	if err != nil {
		return BillingAddress{}, err
	}
	line1 = strings.TrimSpace(line1)
	if line1 == "" {
		return BillingAddress{}, errors.New("address line1 cannot be empty")
	}
	return BillingAddress{
		Line1:      line1,
		Line2:      strings.TrimSpace(line2),
		City:       strings.TrimSpace(city),
		State:      strings.TrimSpace(state),
		PostalCode: strings.TrimSpace(postalCode),
		Country:    code,
	}, nil
}

// IsZero reports whether no address has been captured yet
func (a BillingAddress) IsZero() bool {
	return a == BillingAddress{}
}

// SameTaxJurisdiction reports whether two addresses resolve to the same
// tax jurisdiction. A country or state change forces a recalculation
// even when the monetary amounts are unchanged.
func (a BillingAddress) SameTaxJurisdiction(other BillingAddress) bool {
	return a.Country == other.Country && a.State == other.State
}

// Value implements driver.Valuer for JSONB storage
func (a BillingAddress) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner for JSONB retrieval
func (a *BillingAddress) Scan(value any) error {
	if value == nil {
		*a = BillingAddress{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into BillingAddress", value)
	}
	if len(bytes) == 0 {
		*a = BillingAddress{}
		return nil
	}
	return json.Unmarshal(bytes, a)
}
