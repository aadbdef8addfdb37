package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/geometry"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/texture"
)

// TriangleMode selects how DrawFilledTriangles assembles its points.
type TriangleMode int

const (
	// TrianglesList draws one triangle per three points.
	TrianglesList TriangleMode = iota
	// TrianglesStrip draws a triangle for every point after the second, sharing the previous two.
	TrianglesStrip
	// TrianglesFan draws a triangle for every point after the second, sharing the first point.
	TrianglesFan
)

func (m TriangleMode) String() string {
	switch m {
	case TrianglesList:
		return "list"
	case TrianglesStrip:
		return "strip"
	case TrianglesFan:
		return "fan"
	default:
		return fmt.Sprintf("TriangleMode(%d)", int(m))
	}
}

// queue returns the command queue of the bound target, or nil outside a frame.
func (r *renderer) queue(call string) command.Queue {
	if !r.inFrame {
		common.Logger().Error("draw call outside of a frame", "call", call)
		return nil
	}
	return r.bound.target.Queue()
}

func (r *renderer) recordSolid(call string, prim backend.Primitive, points []common.Point) {
	if len(points) == 0 {
		return
	}
	q := r.queue(call)
	if q == nil {
		return
	}
	c := r.states.Current().ResolvedColor()
	verts := q.RecordSolid(prim, len(points))
	for i, p := range points {
		verts[i] = geometry.Solid(p.X, p.Y, c)
	}
}

func (r *renderer) DrawPoint(p common.Point) {
	r.recordSolid("DrawPoint", backend.PrimitivePointList, []common.Point{p})
}

func (r *renderer) DrawPoints(points []common.Point) {
	r.recordSolid("DrawPoints", backend.PrimitivePointList, points)
}

func (r *renderer) DrawLine(a, b common.Point) {
	r.recordSolid("DrawLine", backend.PrimitiveLineList, []common.Point{a, b})
}

func (r *renderer) DrawLines(points []common.Point) {
	r.recordSolid("DrawLines", backend.PrimitiveLineList, points[:len(points)&^1])
}

func (r *renderer) DrawLineStrip(points []common.Point) {
	if len(points) < 2 {
		return
	}
	r.recordSolid("DrawLineStrip", backend.PrimitiveLineStrip, points)
}

func (r *renderer) DrawTriangle(a, b, c common.Point) {
	r.recordSolid("DrawTriangle", backend.PrimitiveLineStrip, []common.Point{a, b, c, a})
}

func (r *renderer) DrawTriangles(points []common.Point) {
	n := len(points) / 3
	if n == 0 {
		return
	}
	lines := make([]common.Point, 0, n*6)
	for i := 0; i < n; i++ {
		a, b, c := points[i*3], points[i*3+1], points[i*3+2]
		lines = append(lines, a, b, b, c, c, a)
	}
	r.recordSolid("DrawTriangles", backend.PrimitiveLineList, lines)
}

func (r *renderer) DrawFilledTriangle(a, b, c common.Point) {
	r.recordSolid("DrawFilledTriangle", backend.PrimitiveTriangleList, []common.Point{a, b, c})
}

func (r *renderer) DrawFilledTriangles(points []common.Point, mode TriangleMode) {
	switch mode {
	case TrianglesList:
		r.recordSolid("DrawFilledTriangles", backend.PrimitiveTriangleList, points[:len(points)/3*3])
	case TrianglesStrip:
		if len(points) < 3 {
			return
		}
		r.recordSolid("DrawFilledTriangles", backend.PrimitiveTriangleStrip, points)
	case TrianglesFan:
		r.recordSolid("DrawFilledTriangles", backend.PrimitiveTriangleList, fanToList(points))
	default:
		common.Logger().Error("unknown triangle mode", "mode", mode.String())
	}
}

// fanToList expands a triangle fan into an equivalent triangle list.
func fanToList(points []common.Point) []common.Point {
	if len(points) < 3 {
		return nil
	}
	list := make([]common.Point, 0, (len(points)-2)*3)
	for i := 1; i < len(points)-1; i++ {
		list = append(list, points[0], points[i], points[i+1])
	}
	return list
}

func (r *renderer) DrawRect(rect common.Rect) {
	l, t, rt, b := rect.Left(), rect.Top(), rect.Right(), rect.Bottom()
	r.recordSolid("DrawRect", backend.PrimitiveLineStrip, []common.Point{
		{X: l, Y: t}, {X: rt, Y: t}, {X: rt, Y: b}, {X: l, Y: b}, {X: l, Y: t},
	})
}

func (r *renderer) DrawRects(rects []common.Rect) {
	lines := make([]common.Point, 0, len(rects)*8)
	for _, rect := range rects {
		l, t, rt, b := rect.Left(), rect.Top(), rect.Right(), rect.Bottom()
		tl, tr, br, bl := common.Point{X: l, Y: t}, common.Point{X: rt, Y: t}, common.Point{X: rt, Y: b}, common.Point{X: l, Y: b}
		lines = append(lines, tl, tr, tr, br, br, bl, bl, tl)
	}
	r.recordSolid("DrawRects", backend.PrimitiveLineList, lines)
}

func (r *renderer) DrawFilledRect(rect common.Rect) {
	l, t, rt, b := rect.Left(), rect.Top(), rect.Right(), rect.Bottom()
	r.recordSolid("DrawFilledRect", backend.PrimitiveTriangleStrip, []common.Point{
		{X: l, Y: t}, {X: rt, Y: t}, {X: l, Y: b}, {X: rt, Y: b},
	})
}

func (r *renderer) DrawFilledRects(rects []common.Rect) {
	tris := make([]common.Point, 0, len(rects)*6)
	for _, rect := range rects {
		l, t, rt, b := rect.Left(), rect.Top(), rect.Right(), rect.Bottom()
		tl, tr, br, bl := common.Point{X: l, Y: t}, common.Point{X: rt, Y: t}, common.Point{X: rt, Y: b}, common.Point{X: l, Y: b}
		tris = append(tris, tl, tr, br, tl, br, bl)
	}
	r.recordSolid("DrawFilledRects", backend.PrimitiveTriangleList, tris)
}

func (r *renderer) DrawTexturedRect(dest common.Rect, tex *texture.Texture, src *common.Rect) error {
	var srcs []common.Rect
	if src != nil {
		srcs = []common.Rect{*src}
	}
	return r.recordTextured("DrawTexturedRect", tex, []common.Rect{dest}, srcs)
}

func (r *renderer) DrawTexturedRects(tex *texture.Texture, dests []common.Rect, srcs []common.Rect) error {
	return r.recordTextured("DrawTexturedRects", tex, dests, srcs)
}

// recordTextured records one textured triangle list with six vertices per destination rectangle.
func (r *renderer) recordTextured(call string, tex *texture.Texture, dests, srcs []common.Rect) error {
	if !tex.Valid() {
		return fmt.Errorf("%w: %s", texture.ErrInvalidTexture, call)
	}
	if srcs != nil && len(srcs) != len(dests) {
		return fmt.Errorf("renderer: %s: %d source rects for %d destinations", call, len(srcs), len(dests))
	}
	if len(dests) == 0 {
		return nil
	}
	q := r.queue(call)
	if q == nil {
		return ErrNoFrame
	}
	owner, isTarget := r.ctx.Targets.Owner(tex)
	if isTarget && r.isBound(owner) {
		return fmt.Errorf("%w: %s: %s is bound for drawing", ErrTargetHazard, call, owner)
	}

	c := r.states.Current().ResolvedColor()
	whole := common.RectFromSize(tex.Size())
	verts := q.RecordTextured(backend.PrimitiveTriangleList, len(dests)*6, tex)
	for i, d := range dests {
		src := whole
		if srcs != nil {
			src = srcs[i]
		}
		u0, v0, u1, v1 := tex.UV(src)
		l, t, rt, b := d.Left(), d.Top(), d.Right(), d.Bottom()
		v := verts[i*6 : i*6+6]
		v[0] = geometry.Textured(l, t, u0, v0, c)
		v[1] = geometry.Textured(rt, t, u1, v0, c)
		v[2] = geometry.Textured(rt, b, u1, v1, c)
		v[3] = geometry.Textured(l, t, u0, v0, c)
		v[4] = geometry.Textured(rt, b, u1, v1, c)
		v[5] = geometry.Textured(l, b, u0, v1, c)
	}
	if isTarget {
		r.sampled[owner] = struct{}{}
	}
	return nil
}
