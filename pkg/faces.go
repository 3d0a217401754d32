package pkg

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var supportedSizes = []int{2, 3, 4, 6, 8, 10, 12, 20, 24, 30, 100}

// SupportedSizes returns the die sizes the engine can roll.
func SupportedSizes() []int {
	return slices.Clone(supportedSizes)
}

func IsSupportedSize(size int) bool {
	return slices.Contains(supportedSizes, size)
}

// FaceSet is the ordered list of values a single die can show. FaceSets
// handed out by ResolveFaces are shared and must not be modified.
type FaceSet []int

func (f FaceSet) Min() int {
	return slices.Min(f)
}

func (f FaceSet) Max() int {
	return slices.Max(f)
}

func (f FaceSet) String() string {
	return "[" + joinInts(f, " ") + "]"
}

func joinInts(values []int, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}

type faceKey struct {
	size   int
	reroll string
	subAll int
	addAll int
}

var faceCache = newMemo[faceKey, FaceSet]()

// ResolveFaces builds the faces of a die of the given size. Each value in
// rerollDie is removed once from 1..size, then subAll and addAll shift every
// remaining face.
func ResolveFaces(size int, rerollDie []int, subAll, addAll int) (FaceSet, error) {
	if err := CheckShift("subAll", subAll); err != nil {
		return nil, err
	}
	if err := CheckShift("addAll", addAll); err != nil {
		return nil, err
	}
	key := faceKey{
		size:   size,
		reroll: joinInts(rerollDie, ","),
		subAll: subAll,
		addAll: addAll,
	}
	return faceCache.getOrCompute(key, func() (FaceSet, error) {
		return resolveFaces(size, rerollDie, subAll, addAll)
	})
}

func resolveFaces(size int, rerollDie []int, subAll, addAll int) (FaceSet, error) {
	if !IsSupportedSize(size) {
		return nil, fmt.Errorf("%w: d%d", ErrUnknownDieSize, size)
	}
	faces := make(FaceSet, size)
	for i := range faces {
		faces[i] = i + 1
	}
	for _, face := range rerollDie {
		idx := slices.Index(faces, face)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %d on d%d", ErrFaceNotPresent, face, size)
		}
		faces = slices.Delete(faces, idx, idx+1)
	}
	if len(faces) == 0 {
		return nil, fmt.Errorf("%w: d%d", ErrEmptyFaceSet, size)
	}
	shift := addAll - subAll
	if shift != 0 {
		for i := range faces {
			faces[i] += shift
		}
	}
	return faces, nil
}
