package registry

import (
	"reflect"
	"testing"

	"github.com/jassi-singh/hivebox/internal/format"
	"github.com/stretchr/testify/require"
)

type point struct{ X, Y int }

type pointAdapter struct{}

func (pointAdapter) ValueType() reflect.Type { return reflect.TypeOf(point{}) }

func (pointAdapter) Read(r *format.Reader) (any, error) {
	x, err := r.ReadInt()
	if err != nil {
		return nil, err
	}
	y, err := r.ReadInt()
	if err != nil {
		return nil, err
	}
	return point{X: int(x), Y: int(y)}, nil
}

func (pointAdapter) Write(w *format.Writer, v any) error {
	p := v.(point)
	w.Int(int64(p.X))
	w.Int(int64(p.Y))
	return nil
}

func TestRegisterAndFind(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(pointAdapter{}, 1))

	adapter, ok := reg.Find(1)
	require.True(t, ok)
	require.IsType(t, pointAdapter{}, adapter)
}

func TestRegisterDuplicateTypeID(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(pointAdapter{}, 1))
	err := reg.Register(pointAdapter{}, 1)
	require.Error(t, err)
}

func TestFindByValue(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(pointAdapter{}, 5))

	adapter, typeID, ok := reg.FindByValue(point{X: 1, Y: 2})
	require.True(t, ok)
	require.Equal(t, uint8(5), typeID)
	require.NotNil(t, adapter)
}

func TestParentFallthrough(t *testing.T) {
	parent := New(nil)
	require.NoError(t, parent.Register(pointAdapter{}, 9))

	child := New(parent)
	adapter, ok := child.Find(9)
	require.True(t, ok)
	require.NotNil(t, adapter)

	_, ok = child.Find(10)
	require.False(t, ok)
}

func TestEndToEndWriterReaderWithUserType(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(pointAdapter{}, 3))

	w := format.NewWriter(reg)
	require.NoError(t, w.Write(point{X: 10, Y: -4}))

	r := format.NewReader(w.Bytes(), reg)
	v, err := r.Read()
	require.NoError(t, err)
	require.Equal(t, point{X: 10, Y: -4}, v)
}
