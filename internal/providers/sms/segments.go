package sms

import "strings"

// Segment limits per the GSM 03.38 and UCS-2 encodings. A single-part
// message holds more characters than each part of a concatenated one because
// concatenation consumes header space.
const (
	gsmSingleLimit  = 160
	gsmConcatLimit  = 153
	ucs2SingleLimit = 70
	ucs2ConcatLimit = 67
)

// gsmBasic is the GSM 03.38 basic character set.
const gsmBasic = "@£$¥èéùìòÇ\nØø\rÅåΔ_ΦΓΛΩΠΨΣΘΞÆæßÉ !\"#¤%&'()*+,-./0123456789:;<=>?" +
	"¡ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÑÜ§¿abcdefghijklmnopqrstuvwxyzäöñüà"

// gsmExtended characters are encoded with an escape and count as two.
const gsmExtended = "^{}\\[~]|€"

// EstimateSegments reports how many SMS parts the body will occupy. Any rune
// outside the GSM basic and extended sets forces UCS-2 encoding for the
// whole message.
func EstimateSegments(body string) int {
	if body == "" {
		return 1
	}

	length := 0
	gsm := true
	for _, r := range body {
		switch {
		case strings.ContainsRune(gsmBasic, r):
			length++
		case strings.ContainsRune(gsmExtended, r):
			length += 2
		default:
			gsm = false
		}
	}

	if !gsm {
		runes := len([]rune(body))
		return segmentsFor(runes, ucs2SingleLimit, ucs2ConcatLimit)
	}
	return segmentsFor(length, gsmSingleLimit, gsmConcatLimit)
}

func segmentsFor(length, single, concat int) int {
	if length <= single {
		return 1
	}
	segments := length / concat
	if length%concat != 0 {
		segments++
	}
	return segments
}
