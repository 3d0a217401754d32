package pkg

import (
	"testing"

	"github.com/shoenig/test/must"
)

func TestResolveFaces(t *testing.T) {
	for _, size := range SupportedSizes() {
		faces, err := ResolveFaces(size, nil, 0, 0)
		must.NoError(t, err)
		must.Len(t, size, faces)
		must.EqOp(t, 1, faces.Min())
		must.EqOp(t, size, faces.Max())
	}

	_, err := ResolveFaces(7, nil, 0, 0)
	must.ErrorIs(t, err, ErrUnknownDieSize)
}

func TestResolveFaces_Reroll(t *testing.T) {
	faces, err := ResolveFaces(6, []int{1}, 0, 0)
	must.NoError(t, err)
	must.Eq(t, FaceSet{2, 3, 4, 5, 6}, faces)

	faces, err = ResolveFaces(6, []int{1, 2, 6}, 0, 0)
	must.NoError(t, err)
	must.Eq(t, FaceSet{3, 4, 5}, faces)

	_, err = ResolveFaces(4, []int{5}, 0, 0)
	must.ErrorIs(t, err, ErrFaceNotPresent)

	_, err = ResolveFaces(4, []int{1, 1}, 0, 0)
	must.ErrorIs(t, err, ErrFaceNotPresent)

	_, err = ResolveFaces(2, []int{1, 2}, 0, 0)
	must.ErrorIs(t, err, ErrEmptyFaceSet)
}

func TestResolveFaces_Shift(t *testing.T) {
	faces, err := ResolveFaces(4, nil, 1, 0)
	must.NoError(t, err)
	must.Eq(t, FaceSet{0, 1, 2, 3}, faces)

	// exclusion happens before the shift
	faces, err = ResolveFaces(4, []int{1}, 0, 2)
	must.NoError(t, err)
	must.Eq(t, FaceSet{4, 5, 6}, faces)
}

func TestResolveFaces_Cached(t *testing.T) {
	a, err := ResolveFaces(8, []int{1}, 0, 1)
	must.NoError(t, err)
	b, err := ResolveFaces(8, []int{1}, 0, 1)
	must.NoError(t, err)
	must.EqOp(t, &a[0], &b[0])
}

func TestResolveFaces_ShiftBounds(t *testing.T) {
	faces, err := ResolveFaces(6, nil, 0, MaxShift)
	must.NoError(t, err)
	must.EqOp(t, MaxShift+6, faces.Max())

	_, err = ResolveFaces(6, nil, 0, MaxShift+1)
	must.ErrorIs(t, err, ErrOutOfRange)

	_, err = ResolveFaces(6, nil, 1<<40, 0)
	must.ErrorIs(t, err, ErrOutOfRange)
}
