package attack

// Subdivide divides a buffer into blocks. A trailing partial block is dropped.
func Subdivide(buf []byte, blockSize int) [][]byte {
	var blocks [][]byte
	for len(buf) >= blockSize {
		// Return pointers, not copies.
		blocks = append(blocks, buf[:blockSize])
		buf = buf[blockSize:]
	}
	return blocks
}

// HasIdenticalBlocks returns true if any block in the buffer appears more than once.
func HasIdenticalBlocks(buf []byte, blockSize int) bool {
	seen := make(map[string]bool)
	for _, block := range Subdivide(buf, blockSize) {
		s := string(block)
		if seen[s] {
			return true
		}
		seen[s] = true
	}
	return false
}

// blockAt returns block index of buf, or nil if buf is too short.
func blockAt(buf []byte, index, blockSize int) []byte {
	start := index * blockSize
	if index < 0 || start+blockSize > len(buf) {
		return nil
	}
	return buf[start : start+blockSize]
}
