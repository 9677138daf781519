package chunkmap

// RegisterReader installs r as the chunk reader and returns the one it
// replaced, or nil.
func (m *ChunkMap[T]) RegisterReader(r Reader[T]) Reader[T] {
	prev := m.reader
	m.reader = r
	return prev
}

// UnregisterReader removes the reader; new chunks start out zeroed.
func (m *ChunkMap[T]) UnregisterReader() Reader[T] {
	return m.RegisterReader(nil)
}

// RegisterWriter installs w as the chunk writer and returns the one it
// replaced, or nil.
func (m *ChunkMap[T]) RegisterWriter(w Writer[T]) Writer[T] {
	prev := m.writer
	m.writer = w
	return prev
}

// UnregisterWriter removes the writer; evicted chunks are then discarded.
func (m *ChunkMap[T]) UnregisterWriter() Writer[T] {
	return m.RegisterWriter(nil)
}
