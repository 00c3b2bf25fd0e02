package pdf

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// canonicalize rewrites a composed PDF so that equal compositions serialize
// to equal bytes. The page importer emits dictionaries and numbers objects
// in map order; here objects are renumbered in the order they are reached
// from the trailer, dictionary keys are sorted and unreachable objects are
// dropped. No ID or timestamps are added.
func canonicalize(data []byte) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("reread pdf: %w", err)
	}
	if ctx.Root == nil {
		return nil, fmt.Errorf("pdf has no catalog")
	}

	c := &canonicalWriter{xref: ctx.XRefTable, numbers: make(map[int]int)}
	root := c.number(int(ctx.Root.ObjectNumber))
	info := 0
	if ctx.Info != nil {
		info = c.number(int(ctx.Info.ObjectNumber))
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	var offsets []int
	for i := 0; i < len(c.queue); i++ {
		offsets = append(offsets, out.Len())
		if err := c.writeObject(&out, i+1, c.queue[i]); err != nil {
			return nil, err
		}
	}

	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<</Root %d 0 R /Size %d", root, len(offsets)+1)
	if info > 0 {
		fmt.Fprintf(&out, " /Info %d 0 R", info)
	}
	fmt.Fprintf(&out, ">>\nstartxref\n%d\n%%%%EOF\n", xref)
	return out.Bytes(), nil
}

type canonicalWriter struct {
	xref    *model.XRefTable
	numbers map[int]int // old object number to new
	queue   []int       // old object numbers in new order
}

// number returns the new number for an old object, queueing it on first use.
func (c *canonicalWriter) number(old int) int {
	if n, ok := c.numbers[old]; ok {
		return n
	}
	c.queue = append(c.queue, old)
	n := len(c.queue)
	c.numbers[old] = n
	return n
}

func (c *canonicalWriter) writeObject(out *bytes.Buffer, n, old int) error {
	obj, err := c.xref.Dereference(*types.NewIndirectRef(old, 0))
	if err != nil {
		return fmt.Errorf("object %d: %w", old, err)
	}
	fmt.Fprintf(out, "%d 0 obj\n", n)
	switch o := obj.(type) {
	case nil:
		out.WriteString("null")
	case types.StreamDict:
		d := c.remap(o.Dict).(types.Dict)
		d["Length"] = types.Integer(len(o.Raw))
		out.WriteString(d.PDFString())
		out.WriteString("\nstream\n")
		out.Write(o.Raw)
		out.WriteString("\nendstream")
	default:
		out.WriteString(c.remap(o).PDFString())
	}
	out.WriteString("\nendobj\n")
	return nil
}

// remap copies obj with every indirect reference renumbered. Keys are
// visited sorted so first-reference order does not depend on map order.
func (c *canonicalWriter) remap(obj types.Object) types.Object {
	switch o := obj.(type) {
	case types.IndirectRef:
		return *types.NewIndirectRef(c.number(int(o.ObjectNumber)), 0)
	case types.Dict:
		keys := make([]string, 0, len(o))
		for k := range o {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := types.NewDict()
		for _, k := range keys {
			if o[k] == nil {
				d[k] = nil
				continue
			}
			d[k] = c.remap(o[k])
		}
		return d
	case types.Array:
		a := make(types.Array, len(o))
		for i, v := range o {
			if v != nil {
				a[i] = c.remap(v)
			}
		}
		return a
	default:
		return obj
	}
}
