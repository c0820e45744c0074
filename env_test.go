package lox

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Env_Define_Get(t *testing.T) {
	root := NewEnv(nil)
	root.Define("a", Num(1))

	v, err := root.Get("a")
	require.NoError(t, err)
	assert.Equal(t, Num(1), v)

	root.Define("a", Str("again"))
	v, _ = root.Get("a")
	assert.Equal(t, Str("again"), v, "redefinition overwrites")
}

func Test_Env_Lookup_WalksParents(t *testing.T) {
	root := NewEnv(nil)
	root.Define("x", Num(1))
	child := root.Enclosed().Enclosed()

	v, err := child.Get("x")
	require.NoError(t, err)
	assert.Equal(t, Num(1), v)
	assert.Same(t, root, child.Parent().Parent())
	assert.Nil(t, root.Parent())
}

func Test_Env_Define_Shadows(t *testing.T) {
	root := NewEnv(nil)
	root.Define("x", Num(1))
	child := root.Enclosed()
	child.Define("x", Num(2))

	v, _ := child.Get("x")
	assert.Equal(t, Num(2), v)
	v, _ = root.Get("x")
	assert.Equal(t, Num(1), v)
}

func Test_Env_Set_UpdatesNearestBinding(t *testing.T) {
	root := NewEnv(nil)
	root.Define("x", Num(1))
	mid := root.Enclosed()
	mid.Define("x", Num(2))
	leaf := mid.Enclosed()

	require.NoError(t, leaf.Set("x", Num(3)))
	v, _ := mid.Get("x")
	assert.Equal(t, Num(3), v)
	v, _ = root.Get("x")
	assert.Equal(t, Num(1), v)
	assert.Empty(t, leaf.Names(), "Set never defines")
}

func Test_Env_Undefined(t *testing.T) {
	env := NewEnv(nil).Enclosed()

	_, err := env.Get("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUndefinedVariable))
	assert.Contains(t, err.Error(), "'nope'")

	err = env.Set("nope", Nil)
	assert.True(t, errors.Is(err, ErrUndefinedVariable))
	_, err = env.Get("nope")
	assert.Error(t, err)
}

func Test_Env_SharedParent_SeesMutations(t *testing.T) {
	root := NewEnv(nil)
	root.Define("n", Num(0))
	a, b := root.Enclosed(), root.Enclosed()

	require.NoError(t, a.Set("n", Num(5)))
	v, _ := b.Get("n")
	assert.Equal(t, Num(5), v)
}

func Test_Env_Names_SortedAndLocal(t *testing.T) {
	root := NewEnv(nil)
	root.Define("b", Nil)
	root.Define("a", Nil)
	child := root.Enclosed()
	child.Define("c", Nil)

	assert.Equal(t, []string{"a", "b"}, root.Names())
	assert.Equal(t, []string{"c"}, child.Names())
}

func Test_Value_Truthy_And_String(t *testing.T) {
	assert.False(t, Nil.Truthy())
	assert.False(t, Num(0).Truthy())
	assert.True(t, Num(-1).Truthy())
	assert.False(t, Str("").Truthy())
	assert.True(t, FunVal(&Fun{Name: "f"}).Truthy())

	assert.Equal(t, `"a\"b"`, Str(`a"b`).String())
	assert.Equal(t, `a"b`, FormatValue(Str(`a"b`)))
	assert.Equal(t, "function", VTFun.String())
	assert.Equal(t, 2, (&Fun{Params: []string{"a", "b"}}).Arity())
	assert.Equal(t, 0, (&Fun{Native: func(*Interpreter, []Value) (Value, error) { return Nil, nil }, NativeArity: 0}).Arity())
}
