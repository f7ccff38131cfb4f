package raster

import (
	"image"
	"image/color"
	"log"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const maxFormDepth = 8

type graphicsState struct {
	ctm         matrix
	lineWidth   float64
	fillColor   color.RGBA
	strokeColor color.RGBA
}

// interpreter paints the path and image operators of a content stream.
// Text operators are skipped; text is drawn separately from decoded runs.
type interpreter struct {
	ctx     *model.Context
	painter *painter
	logger  *log.Logger
	page    int

	gs    graphicsState
	stack []graphicsState
	path  path
	depth int
}

func newInterpreter(ctx *model.Context, dst *image.RGBA, base matrix, page int, logger *log.Logger) *interpreter {
	return &interpreter{
		ctx:     ctx,
		painter: newPainter(dst),
		logger:  logger,
		page:    page,
		gs: graphicsState{
			ctm:         base,
			lineWidth:   1,
			fillColor:   color.RGBA{0, 0, 0, 0xff},
			strokeColor: color.RGBA{0, 0, 0, 0xff},
		},
	}
}

func (in *interpreter) run(content []byte, resources types.Dict) {
	for _, op := range parseOperations(content) {
		in.execute(op, resources)
	}
}

func nums(operands []any, n int) ([]float64, bool) {
	if len(operands) < n {
		return nil, false
	}
	out := make([]float64, n)
	for i, o := range operands[len(operands)-n:] {
		f, ok := o.(float64)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func (in *interpreter) devicePoint(x, y float64) point {
	dx, dy := in.gs.ctm.apply(x, y)
	return point{dx, dy}
}

func (in *interpreter) execute(op operation, resources types.Dict) {
	switch op.operator {
	case "q":
		in.stack = append(in.stack, in.gs)
	case "Q":
		if n := len(in.stack); n > 0 {
			in.gs = in.stack[n-1]
			in.stack = in.stack[:n-1]
		}
	case "cm":
		if v, ok := nums(op.operands, 6); ok {
			in.gs.ctm = matrix{v[0], v[1], v[2], v[3], v[4], v[5]}.multiply(in.gs.ctm)
		}
	case "w":
		if v, ok := nums(op.operands, 1); ok {
			in.gs.lineWidth = v[0]
		}

	case "m":
		if v, ok := nums(op.operands, 2); ok {
			in.path.moveTo(in.devicePoint(v[0], v[1]))
		}
	case "l":
		if v, ok := nums(op.operands, 2); ok {
			in.path.lineTo(in.devicePoint(v[0], v[1]))
		}
	case "c":
		if v, ok := nums(op.operands, 6); ok {
			in.path.curveTo(in.devicePoint(v[0], v[1]), in.devicePoint(v[2], v[3]), in.devicePoint(v[4], v[5]))
		}
	case "v":
		if v, ok := nums(op.operands, 4); ok {
			cur, _ := in.path.current()
			in.path.curveTo(cur, in.devicePoint(v[0], v[1]), in.devicePoint(v[2], v[3]))
		}
	case "y":
		if v, ok := nums(op.operands, 4); ok {
			end := in.devicePoint(v[2], v[3])
			in.path.curveTo(in.devicePoint(v[0], v[1]), end, end)
		}
	case "h":
		in.path.closePath()
	case "re":
		if v, ok := nums(op.operands, 4); ok {
			x, y, w, h := v[0], v[1], v[2], v[3]
			in.path.moveTo(in.devicePoint(x, y))
			in.path.lineTo(in.devicePoint(x+w, y))
			in.path.lineTo(in.devicePoint(x+w, y+h))
			in.path.lineTo(in.devicePoint(x, y+h))
			in.path.closePath()
		}

	case "f", "F", "f*":
		in.painter.fill(&in.path, in.gs.fillColor)
		in.path.reset()
	case "S":
		in.strokePath()
		in.path.reset()
	case "s":
		in.path.closePath()
		in.strokePath()
		in.path.reset()
	case "B", "B*":
		in.painter.fill(&in.path, in.gs.fillColor)
		in.strokePath()
		in.path.reset()
	case "b", "b*":
		in.path.closePath()
		in.painter.fill(&in.path, in.gs.fillColor)
		in.strokePath()
		in.path.reset()
	case "n":
		in.path.reset()

	case "g":
		if c, ok := deviceColor(op.operands, 1); ok {
			in.gs.fillColor = c
		}
	case "G":
		if c, ok := deviceColor(op.operands, 1); ok {
			in.gs.strokeColor = c
		}
	case "rg":
		if c, ok := deviceColor(op.operands, 3); ok {
			in.gs.fillColor = c
		}
	case "RG":
		if c, ok := deviceColor(op.operands, 3); ok {
			in.gs.strokeColor = c
		}
	case "k":
		if c, ok := deviceColor(op.operands, 4); ok {
			in.gs.fillColor = c
		}
	case "K":
		if c, ok := deviceColor(op.operands, 4); ok {
			in.gs.strokeColor = c
		}
	case "sc", "scn":
		if c, ok := anyColor(op.operands); ok {
			in.gs.fillColor = c
		}
	case "SC", "SCN":
		if c, ok := anyColor(op.operands); ok {
			in.gs.strokeColor = c
		}

	case "Do":
		if len(op.operands) > 0 {
			if n, ok := op.operands[len(op.operands)-1].(name); ok {
				in.doXObject(string(n), resources)
			}
		}
	}
}

func (in *interpreter) strokePath() {
	w := in.gs.lineWidth * in.gs.ctm.scale()
	in.painter.stroke(&in.path, w, in.gs.strokeColor)
}

func deviceColor(operands []any, n int) (color.RGBA, bool) {
	v, ok := nums(operands, n)
	if !ok {
		return color.RGBA{}, false
	}
	b := func(f float64) uint8 {
		if f <= 0 {
			return 0
		}
		if f >= 1 {
			return 0xff
		}
		return uint8(f*255 + 0.5)
	}
	switch n {
	case 1:
		g := b(v[0])
		return color.RGBA{g, g, g, 0xff}, true
	case 4:
		r, g, bl := color.CMYKToRGB(b(v[0]), b(v[1]), b(v[2]), b(v[3]))
		return color.RGBA{r, g, bl, 0xff}, true
	default:
		return color.RGBA{b(v[0]), b(v[1]), b(v[2]), 0xff}, true
	}
}

// anyColor infers the colour space of sc/scn operands from their count.
// Pattern operands are ignored.
func anyColor(operands []any) (color.RGBA, bool) {
	count := 0
	for _, o := range operands {
		if _, ok := o.(float64); ok {
			count++
		}
	}
	if len(operands) > 0 {
		if _, ok := operands[len(operands)-1].(name); ok {
			return color.RGBA{}, false
		}
	}
	switch count {
	case 1, 3, 4:
		return deviceColor(operands, count)
	}
	return color.RGBA{}, false
}

func (in *interpreter) doXObject(xname string, resources types.Dict) {
	if resources == nil {
		return
	}
	o, found := resources.Find("XObject")
	if !found {
		return
	}
	xobjects, err := in.ctx.DereferenceDict(o)
	if err != nil || xobjects == nil {
		return
	}
	entry, found := xobjects.Find(xname)
	if !found {
		return
	}
	sd, err := loadStream(in.ctx, entry)
	if err != nil {
		in.logger.Printf("page %d: skipping XObject %s: %v", in.page, xname, err)
		return
	}

	subtype := ""
	if n := sd.Dict.NameEntry("Subtype"); n != nil {
		subtype = *n
	}

	switch subtype {
	case "Image":
		img, err := decodeImage(in.ctx, sd)
		if err != nil {
			in.logger.Printf("page %d: skipping image %s: %v", in.page, xname, err)
			return
		}
		in.drawImage(img)
	case "Form":
		in.runForm(sd, resources)
	}
}

func (in *interpreter) runForm(sd *types.StreamDict, parent types.Dict) {
	if in.depth >= maxFormDepth {
		return
	}
	saved, savedStack := in.gs, in.stack
	in.stack = nil
	in.depth++
	defer func() {
		in.gs, in.stack = saved, savedStack
		in.depth--
	}()

	if o, found := sd.Find("Matrix"); found {
		if arr, err := in.ctx.DereferenceArray(o); err == nil && len(arr) == 6 {
			var m matrix
			for i, v := range arr {
				m[i], _ = in.ctx.DereferenceNumber(v)
			}
			in.gs.ctm = m.multiply(in.gs.ctm)
		}
	}

	resources := parent
	if o, found := sd.Find("Resources"); found {
		if d, err := in.ctx.DereferenceDict(o); err == nil && d != nil {
			resources = d
		}
	}
	in.run(sd.Content, resources)
}

// drawImage maps the unit square through the CTM onto the surface.
func (in *interpreter) drawImage(img image.Image) {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	m := in.gs.ctm
	s2d := f64.Aff3{
		m[0] / w, -m[2] / h, m[2] + m[4],
		m[1] / w, -m[3] / h, m[3] + m[5],
	}
	xdraw.ApproxBiLinear.Transform(in.painter.dst, s2d, img, b, xdraw.Over, nil)
}
