// Package adpcm implements the Yamaha Delta-T (ADPCM-B) encoder used to
// prepare sample data for the YM2610's variable-rate channel.
package adpcm

// stepScale adjusts the adaptive step size after each nibble. The table is
// mirrored across the sign bit so a nibble indexes it directly.
var stepScale = [16]int{
	57, 57, 57, 57, 77, 102, 128, 153,
	57, 57, 57, 57, 77, 102, 128, 153,
}

// Step size clamp range of the hardware decoder.
const (
	minStep = 127
	maxStep = 24576
)

// Encode packs 16-bit signed PCM into Delta-T nibbles, two per byte with the
// high nibble first. The output is ceil(len(pcm)/2) bytes; for odd-length
// input the final byte's low nibble is 0. Encoding is deterministic.
func Encode(pcm []int16) []byte {
	encoded := make([]byte, 0, (len(pcm)+1)/2)

	predicted := 0
	step := minStep
	var pack byte
	highNibble := true

	for _, sample := range pcm {
		delta := int(sample) - predicted

		magnitude := delta
		if magnitude < 0 {
			magnitude = -magnitude
		}

		quantized := (magnitude << 16) / (step << 14)
		if quantized > 7 {
			quantized = 7
		}

		nibble := byte(quantized)
		reconstructed := (quantized*2 + 1) * step / 8

		if delta < 0 {
			nibble |= 0x8
			predicted -= reconstructed
		} else {
			predicted += reconstructed
		}

		step = stepScale[nibble] * step / 64
		if step < minStep {
			step = minStep
		} else if step > maxStep {
			step = maxStep
		}

		if highNibble {
			pack = nibble << 4
			highNibble = false
		} else {
			encoded = append(encoded, pack|nibble)
			highNibble = true
		}
	}

	if !highNibble {
		encoded = append(encoded, pack)
	}

	return encoded
}
