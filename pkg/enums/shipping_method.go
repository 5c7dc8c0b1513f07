package enums

import "fmt"

// ShippingMethod identifies a tariff row in the shipping table.
type ShippingMethod string

const (
	ShippingMethodStandard     ShippingMethod = "standard"
	ShippingMethodExpress      ShippingMethod = "express"
	ShippingMethodOvernight    ShippingMethod = "overnight"
	ShippingMethodFreeShipping ShippingMethod = "free_shipping"
)

var validShippingMethods = []ShippingMethod{
	ShippingMethodStandard,
	ShippingMethodExpress,
	ShippingMethodOvernight,
	ShippingMethodFreeShipping,
}

// String implements fmt.Stringer.
func (m ShippingMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known ShippingMethod.
func (m ShippingMethod) IsValid() bool {
	for _, candidate := range validShippingMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseShippingMethod converts raw input into a ShippingMethod.
func ParseShippingMethod(value string) (ShippingMethod, error) {
	for _, candidate := range validShippingMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping method %q", value)
}
