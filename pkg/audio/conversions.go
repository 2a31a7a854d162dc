package audio

// BytesToInt16Slice interprets data as little-endian 16-bit samples. An odd
// trailing byte is zero-padded.
func BytesToInt16Slice(data []byte) []int16 {
	if len(data)%2 != 0 {
		tmp := make([]byte, len(data)+1)
		copy(tmp, data)
		data = tmp
	}

	result := make([]int16, len(data)/2)
	for i := 0; i < len(result); i++ {
		result[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return result
}

// Int16SliceToBytes serializes samples as little-endian bytes.
func Int16SliceToBytes(samples []int16) []byte {
	result := make([]byte, len(samples)*2)
	for i, s := range samples {
		result[i*2] = byte(s)
		result[i*2+1] = byte(uint16(s) >> 8)
	}
	return result
}
