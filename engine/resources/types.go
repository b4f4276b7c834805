package resources

import (
	"fmt"
	"strings"
)

const (
	/** @brief The maximum number of dependencies a single resource may declare. */
	MaxDependencyCount = 8
	/** @brief Width of the name buffers in a manifest, NUL padding included. */
	MaxNameSize = 64
	/** @brief Width of the data path buffer in a manifest, NUL padding included. */
	MaxDataPathSize = 256
	/** @brief The only manifest version understood. */
	ManifestVersion uint32 = 1
)

// Type is the declared kind of a resource. Values match the manifest encoding.
type Type uint32

/** @brief Pre-defined resource types. */
const (
	/** @brief Placeholder or grouping node. Carries no data and cannot be accessed. */
	TypeEmpty Type = iota
	TypeText
	TypeMesh
	TypeSkeleton
	TypeAnimation
	TypeSound
	TypeStreamingSound
	TypeMaterial
	TypeShader
)

var typeNames = [...]string{
	TypeEmpty:          "empty",
	TypeText:           "text",
	TypeMesh:           "mesh",
	TypeSkeleton:       "skeleton",
	TypeAnimation:      "animation",
	TypeSound:          "sound",
	TypeStreamingSound: "streaming_sound",
	TypeMaterial:       "material",
	TypeShader:         "shader",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint32(t))
}

// ParseType maps a name produced by String back to its Type.
func ParseType(s string) (Type, error) {
	for i, n := range typeNames {
		if n == s {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown resource type %q", s)
}

// Hint modifies load and unload policy.
type Hint uint32

const (
	HintCpuOnly   Hint = 0x1
	HintGpuOnly   Hint = 0x2
	HintPermanent Hint = 0x4
)

func (h Hint) Has(flag Hint) bool {
	return h&flag != 0
}

func (h Hint) String() string {
	if h == 0 {
		return "none"
	}
	var parts []string
	if h.Has(HintCpuOnly) {
		parts = append(parts, "cpu_only")
	}
	if h.Has(HintGpuOnly) {
		parts = append(parts, "gpu_only")
	}
	if h.Has(HintPermanent) {
		parts = append(parts, "permanent")
	}
	if rest := h &^ (HintCpuOnly | HintGpuOnly | HintPermanent); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseHints accepts the names produced by Hint.String.
func ParseHints(names []string) (Hint, error) {
	var h Hint
	for _, n := range names {
		switch n {
		case "cpu_only":
			h |= HintCpuOnly
		case "gpu_only":
			h |= HintGpuOnly
		case "permanent":
			h |= HintPermanent
		default:
			return 0, fmt.Errorf("unknown resource hint %q", n)
		}
	}
	return h, nil
}

// Ref identifies an occupied slot in a Manager.
type Ref int32

// InvalidRef never names a slot.
const InvalidRef Ref = -1
