//go:build !linux
// +build !linux

package raspberry

// The gpio character device and /dev/gpiomem exist on linux only,
// the emulator backend works everywhere.

func openChip(Config) (Source, error) {
	return nil, ErrNotSupported
}

func openMem(Config) (Source, error) {
	return nil, ErrNotSupported
}
