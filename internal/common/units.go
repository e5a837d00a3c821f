package common

import (
	"errors"
	"math/big"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid amount")

var (
	gasPerTgas    = new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil)
	yoctoPerNear  = new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil)
	yoctoPerNearR = new(big.Rat).SetInt(yoctoPerNear)
)

// OneNear is 10^24 yocto-NEAR as a decimal string.
var OneNear = yoctoPerNear.String()

// TgasToGas converts a decimal Tgas string to gas units (x 10^12).
func TgasToGas(tgas string) (string, error) {
	t, ok := new(big.Int).SetString(tgas, 10)
	if !ok || t.Sign() < 0 {
		return "", ErrInvalidAmount
	}

	return new(big.Int).Mul(t, gasPerTgas).String(), nil
}

// YoctoToNear renders a yocto-NEAR integer string as NEAR with fixed
// 6-decimal rounding. Display only, never feed the result back into
// comparisons or payloads.
func YoctoToNear(yocto string) (string, error) {
	y, ok := new(big.Int).SetString(yocto, 10)
	if !ok {
		return "", ErrInvalidAmount
	}

	r := new(big.Rat).SetFrac(y, yoctoPerNear)
	return r.FloatString(6), nil
}

// NearToYocto converts a decimal NEAR string to integer yocto-NEAR,
// truncating anything below 1 yocto.
func NearToYocto(near string) (string, error) {
	if strings.TrimSpace(near) == "" {
		return "", ErrInvalidAmount
	}

	n, ok := new(big.Rat).SetString(near)
	if !ok || n.Sign() < 0 {
		return "", ErrInvalidAmount
	}

	y := new(big.Rat).Mul(n, yoctoPerNearR)
	return new(big.Int).Quo(y.Num(), y.Denom()).String(), nil
}

// CmpYocto compares two yocto-NEAR integer strings exactly.
func CmpYocto(a, b string) (int, error) {
	x, ok := new(big.Int).SetString(a, 10)
	if !ok {
		return 0, ErrInvalidAmount
	}

	y, ok := new(big.Int).SetString(b, 10)
	if !ok {
		return 0, ErrInvalidAmount
	}

	return x.Cmp(y), nil
}

// MinYocto returns the smaller of two yocto-NEAR integer strings.
func MinYocto(a, b string) (string, error) {
	c, err := CmpYocto(a, b)
	if err != nil {
		return "", err
	}

	if c <= 0 {
		return a, nil
	}

	return b, nil
}

// IsZeroYocto reports whether a yocto-NEAR string is absent or zero.
func IsZeroYocto(amount string) bool {
	if amount == "" {
		return true
	}

	y, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return true
	}

	return y.Sign() == 0
}
