package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shapesSrc = `package shapes

import (
	"fmt"
	str "strings"
)

const scale = 2

// Area returns the scaled area.
//reloadr:reload
func Area(w, h int) int {
	return w * h * scale
}

func label(s string) string { return str.ToUpper(s) }

func init() { fmt.Println("loaded") }

func main() {}

//reloadr:autoreload
type Rect struct {
	W, H int
}

// NewRect builds a rectangle.
func NewRect(w, h int) *Rect { return &Rect{W: w, H: h} }

func (r *Rect) Area() int { return Area(r.W, r.H) }

func (r Rect) Describe(prefix string, tags ...string) (out string, err error) {
	return fmt.Sprint(prefix, tags), nil
}

func (r *Rect) Scale(a, b int) {}

type (
	Point struct{ X, Y int }
	Line  struct{ A, B Point }
)

func build() {
	type Local struct{ V int }
	_ = Local{}
}
`

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shapes.go")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestLocate_Function(t *testing.T) {
	path := writeSource(t, shapesSrc)

	frag, err := Locate(path, "Area", KindFunction)
	require.NoError(t, err)

	assert.Equal(t, "Area", frag.Name)
	assert.Equal(t, KindFunction, frag.Kind)
	assert.Equal(t, "shapes", frag.Package)
	assert.Equal(t, []string{`"fmt"`, `str "strings"`}, frag.Imports)
	assert.True(t, strings.HasPrefix(frag.Text, "// Area returns the scaled area."))
	assert.Contains(t, frag.Text, "//reloadr:reload")
	assert.True(t, strings.HasSuffix(frag.Text, "return w * h * scale\n}"))

	// The method named Area must not be taken for the function.
	assert.NotContains(t, frag.Text, "func (r *Rect)")

	assert.Contains(t, frag.Context, "const scale = 2")
	assert.Contains(t, frag.Context, "func label(s string)")
	assert.Contains(t, frag.Context, "func (r *Rect) Area() int")
	assert.NotContains(t, frag.Context, "func Area(")
	assert.NotContains(t, frag.Context, "func init()")
	assert.NotContains(t, frag.Context, "func main()")
	assert.Contains(t, frag.Context, "func reloadr__init0() { fmt.Println(\"loaded\") }")
	assert.Contains(t, frag.Context, "func reloadr__main() {}")
	assert.NotContains(t, frag.Context, "import")
}

func TestLocate_Class(t *testing.T) {
	path := writeSource(t, shapesSrc)

	frag, err := Locate(path, "Rect", KindClass)
	require.NoError(t, err)

	assert.Equal(t, KindClass, frag.Kind)
	assert.False(t, frag.Nested)
	assert.Equal(t, "NewRect", frag.Constructor)
	assert.Equal(t, []string{"Area", "Describe", "Scale"}, frag.MethodNames())
	assert.True(t, strings.HasPrefix(frag.Text, "//reloadr:autoreload\ntype Rect struct"))
	assert.Contains(t, frag.Text, "// NewRect builds a rectangle.")
	assert.Contains(t, frag.Text, "func (r Rect) Describe(")

	assert.NotContains(t, frag.Context, "type Rect struct")
	assert.NotContains(t, frag.Context, "func NewRect")
	assert.NotContains(t, frag.Context, "func (r *Rect)")
	assert.Contains(t, frag.Context, "func Area(w, h int) int")

	area := frag.Methods[0]
	assert.True(t, area.PointerReceiver)
	assert.Empty(t, area.Params)
	assert.Equal(t, []string{"int"}, area.Results)

	describe := frag.Methods[1]
	assert.False(t, describe.PointerReceiver)
	assert.Equal(t, []string{"string", "...string"}, describe.Params)
	assert.Equal(t, []string{"string", "error"}, describe.Results)
	assert.True(t, describe.Variadic())

	scale := frag.Methods[2]
	assert.Equal(t, []string{"int", "int"}, scale.Params)
	assert.Empty(t, scale.Results)
	assert.False(t, scale.Variadic())
}

func TestLocate_GroupedType(t *testing.T) {
	path := writeSource(t, shapesSrc)

	frag, err := Locate(path, "Line", KindClass)
	require.NoError(t, err)

	assert.Equal(t, "type Line  struct{ A, B Point }", frag.Text)
	assert.Contains(t, frag.Context, "type Point struct{ X, Y int }")
	assert.NotContains(t, frag.Context, "Line  struct")
}

func TestLocate_NestedType(t *testing.T) {
	path := writeSource(t, shapesSrc)

	frag, err := Locate(path, "Local", KindClass)
	require.NoError(t, err)

	assert.True(t, frag.Nested)
	assert.Equal(t, "type Local struct{ V int }", frag.Text)
	assert.Contains(t, frag.Context, "func build()")
}

func TestLocate_NotFound(t *testing.T) {
	path := writeSource(t, shapesSrc)

	tests := []struct {
		name string
		kind Kind
	}{
		{name: "Missing", kind: KindFunction},
		{name: "Missing", kind: KindClass},
		{name: "Rect", kind: KindFunction},
		{name: "label", kind: KindClass},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.kind.String(), func(t *testing.T) {
			_, err := Locate(path, tt.name, tt.kind)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNotFound))
			assert.False(t, errors.Is(err, ErrParse))

			var nf *NotFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, tt.name, nf.Name)
			assert.Equal(t, tt.kind, nf.Kind)
		})
	}
}

func TestLocate_ParseError(t *testing.T) {
	path := writeSource(t, "package shapes\n\nfunc Area() int {\n\treturn 1 +\n")

	_, err := Locate(path, "Area", KindFunction)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, path, pe.File)
	assert.Greater(t, pe.Line, 0)
	assert.Contains(t, pe.Error(), "parse error")
}

func TestLocate_MissingFile(t *testing.T) {
	_, err := Locate(filepath.Join(t.TempDir(), "gone.go"), "Area", KindFunction)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLocate_InvalidKind(t *testing.T) {
	path := writeSource(t, shapesSrc)

	_, err := Locate(path, "Area", Kind(42))
	assert.True(t, errors.Is(err, ErrInvalidKind))
}

func TestLocate_FollowsEdits(t *testing.T) {
	path := writeSource(t, shapesSrc)

	before, err := Locate(path, "Area", KindFunction)
	require.NoError(t, err)

	edited := "package shapes\n\n\n\nfunc helper() int { return 3 }\n\nfunc Area(w, h int) int {\n\treturn w * h * helper()\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(edited), 0644))

	after, err := Locate(path, "Area", KindFunction)
	require.NoError(t, err)

	assert.Equal(t, "func Area(w, h int) int {\n\treturn w * h * helper()\n}", after.Text)
	assert.Equal(t, 7, after.Line)
	assert.NotEqual(t, before.Hash(), after.Hash())
	assert.Empty(t, after.Imports)
}

func TestFindMarked(t *testing.T) {
	path := writeSource(t, shapesSrc)

	found, err := FindMarked(path, DefaultMarkers)
	require.NoError(t, err)
	require.Len(t, found, 2)

	assert.Equal(t, "Area", found[0].Name)
	assert.Equal(t, KindFunction, found[0].Kind)
	assert.Equal(t, "//reloadr:reload", found[0].Marker)

	assert.Equal(t, "Rect", found[1].Name)
	assert.Equal(t, KindClass, found[1].Kind)
	assert.Equal(t, "//reloadr:autoreload", found[1].Marker)
}

func TestIsMarkerLine(t *testing.T) {
	markers := []string{"//reloadr:reload"}

	assert.True(t, IsMarkerLine("//reloadr:reload", markers))
	assert.True(t, IsMarkerLine("  //reloadr:reload  ", markers))
	assert.True(t, IsMarkerLine("//reloadr:reload interval=1s", markers))
	assert.False(t, IsMarkerLine("//reloadr:reloaded", markers))
	assert.False(t, IsMarkerLine("// reloadr:reload", markers))
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "function", want: KindFunction},
		{in: "def", want: KindFunction},
		{in: "Class", want: KindClass},
		{in: "struct", want: KindClass},
		{in: "module", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadModule(t *testing.T) {
	path := writeSource(t, shapesSrc)

	mod, err := ReadModule(path)
	require.NoError(t, err)

	assert.Equal(t, "shapes", mod.Package)
	assert.Len(t, mod.Imports, 2)
	assert.Contains(t, mod.Body, "func init()")
	assert.Contains(t, mod.Body, "type Rect struct")
	assert.Contains(t, mod.Body, "type (\n\tPoint struct{ X, Y int }\n\tLine  struct{ A, B Point }\n)")
	assert.NotContains(t, mod.Body, "func main()")
	assert.Contains(t, mod.Body, "func "+InertMain+"()")
	assert.NotContains(t, mod.Body, "import")
}

func TestReadModule_Vars(t *testing.T) {
	path := writeSource(t, `package vars

import "sync"

type item struct{ N int }

var (
	count   int
	names   = []string{"a"}
	current = &item{}
	byName  map[string]item
	mu      sync.Mutex
	_       = count
)

var a, b = 1, len(names)
`)

	mod, err := ReadModule(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"count", "names", "mu", "a", "b"}, mod.Vars)
}
