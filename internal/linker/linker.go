package linker

// Method selects how repository files are mirrored into a copy.
type Method int

const (
	// MethodHardlink mirrors files as hard links, the cheap default for
	// repository copies on the same filesystem.
	MethodHardlink Method = iota
	// MethodCopy mirrors files byte for byte, the fallback when source
	// and destination live on different filesystems.
	MethodCopy
)

func (m Method) String() string {
	if m == MethodCopy {
		return "copy"
	}
	return "hardlink"
}

// Linker mirrors single files into a repository copy
type Linker interface {
	Deploy(src, dst string) error
	Undeploy(dst string) error
	Method() Method
}

// New creates a linker for the given method
func New(method Method) Linker {
	if method == MethodCopy {
		return NewCopy()
	}
	return NewHardlink()
}
