// Package mmap provides read-only memory-mapped file access.
//
//	m, err := mmap.Open("vectors.vsb")
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes() // valid until Close
//
// Unix builds use golang.org/x/sys/unix; Windows builds use file mapping
// views from golang.org/x/sys/windows.
package mmap
