package apkres

import (
	"fmt"
	"math"
	"strconv"
)

// complexUnit is the low-nibble unit tag of a DIMENSION or FRACTION
// complex value.
type complexUnit uint8

const (
	unitPx complexUnit = 0
	unitDp complexUnit = 1
	unitSp complexUnit = 2
	unitPt complexUnit = 3
	unitIn complexUnit = 4
	unitMm complexUnit = 5

	unitFraction      complexUnit = 0
	unitFractionParent complexUnit = 1
)

var dimensionSuffixes = map[complexUnit]string{
	unitPx: "px",
	unitDp: "dp",
	unitSp: "sp",
	unitPt: "pt",
	unitIn: "in",
	unitMm: "mm",
}

var fractionSuffixes = map[complexUnit]string{
	unitFraction:       "%",
	unitFractionParent: "%p",
}

// complexToFloat decodes the 32-bit fixed-point "complex" encoding used for
// DIMENSION and FRACTION values: the top 24 bits are a mantissa, and bits
// 4-5 select one of four radixes, which put 0, 7, 15 or 23 of the
// mantissa's bits after the binary point.
func complexToFloat(data uint32) float64 {
	mantissa := float64(data & 0xFFFFFF00)
	radix := (data >> 4) & 0x3

	// 2^-8, 2^-15, 2^-23, 2^-31: 1, 1/128, 1/32768, 1/8388608, all /256.
	multipliers := [4]float64{1.0 / 256, 1.0 / (256 * 128), 1.0 / (256 * 32768), 1.0 / (256 * 8388608)}

	v := mantissa * multipliers[radix]
	return round4(v)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// TypedValueDecoder renders a (dataType, data) pair from a resource entry or
// an XML attribute into its textual form. strings resolves TYPE_STRING
// payloads against the global string pool; it may be nil, in which case
// TYPE_STRING renders as "".
type TypedValueDecoder struct {
	strings *StringPool
}

func NewTypedValueDecoder(strings *StringPool) *TypedValueDecoder {
	return &TypedValueDecoder{strings: strings}
}

// Decode renders dataType/data per spec.md §4.4. It never errors: unknown
// data types degrade to the decimal rendering of data, matching the "opaque"
// row of the dispatch table.
func (d *TypedValueDecoder) Decode(dataType uint8, data uint32) string {
	switch dataType {
	case typeNull:
		return ""
	case typeReference, typeAttribute:
		return fmt.Sprintf("0x%x", data)
	case typeString:
		if d.strings == nil {
			return ""
		}
		return d.strings.Get(data)
	case typeFloat:
		return strconv.FormatFloat(float64(math.Float32frombits(data)), 'g', -1, 32)
	case typeDimension:
		v := complexToFloat(data)
		return fmt.Sprintf("%s%s", formatFixed(v), dimensionSuffixes[complexUnit(data&0xF)])
	case typeFraction:
		v := complexToFloat(data) * 100
		return fmt.Sprintf("%s%s", formatFixed(round4(v)), fractionSuffixes[complexUnit(data&0xF)])
	case typeIntDec:
		return strconv.FormatInt(int64(int32(data)), 10)
	case typeIntHex:
		return fmt.Sprintf("0x%x", data)
	case typeIntBool:
		switch data {
		case 0xFFFFFFFF:
			return "true"
		case 0:
			return "false"
		default:
			return "undefined"
		}
	case typeIntColorArgb8:
		return fmt.Sprintf("#%08x", data)
	case typeIntColorRgb8:
		return fmt.Sprintf("#%06x", data&0xFFFFFF)
	case typeIntColorArgb4:
		return fmt.Sprintf("#%04x", data&0xFFFF)
	case typeIntColorRgb4:
		return fmt.Sprintf("#%03x", data&0xFFF)
	default:
		return strconv.FormatUint(uint64(data), 10)
	}
}

// formatFixed renders a float with exactly the decimal precision it needs
// (but at least one fractional digit, "16.0" not "16"), mirroring Android's
// own dimension/fraction text rendering.
func formatFixed(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s
		}
	}
	return s + ".0"
}
