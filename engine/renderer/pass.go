package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/geometry"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/state"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/target"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/upload"
)

// passState tracks what is bound in the open render pass so redundant commands are skipped.
type passState struct {
	pipeline  pipeline.Pipeline
	uniforms  *shader.UniformBlock
	matrix    [16]float32
	hasMatrix bool
	viewport  common.Rect
	scissor   [4]uint32
	hasView   bool
	hasClip   bool
	layout    geometry.Layout
	hasLayout bool
	texture   *texture.Texture
}

// drawTarget uploads a target's vertices, replays its command queue into one render pass and resets
// the queue. The pass always runs so the target is cleared even when nothing was drawn. Only a
// missing attachment is returned; upload and draw failures are logged and drop the affected draws.
func (r *renderer) drawTarget(t *target.Target) error {
	cmd := r.sub.Command()
	if cmd == nil {
		return ErrNoFrame
	}
	queue := t.Queue()
	defer queue.Reset()

	attachment, err := r.attachment(t)
	if err != nil {
		return err
	}

	failed := r.uploadTextures(queue)

	var solid, textured upload.Region
	skip := false
	acc := queue.Accumulator()
	if queue.Len() > 0 {
		solid, err = t.Upload().Upload(cmd, r.frameIndex, r.serial, acc.Bytes(geometry.LayoutSolid))
		if err == nil {
			textured, err = t.Upload().Upload(cmd, r.frameIndex, r.serial, acc.Bytes(geometry.LayoutTextured))
		}
		if err != nil {
			skip = true
			r.stats.SkippedUploads++
			if errors.Is(err, upload.ErrUploadSkipped) {
				common.Logger().Warn("vertex upload skipped", "target", t.Handle().String(), "error", err)
			} else {
				common.Logger().Error("vertex upload failed", "target", t.Handle().String(), "error", err)
			}
		}
	}

	pass, err := cmd.BeginRenderPass(backend.RenderPassDescriptor{
		Target:     attachment,
		ClearColor: t.ClearColor(),
	})
	if err != nil {
		common.Logger().Error("begin render pass", "target", t.Handle().String(), "error", err)
		return nil
	}
	defer pass.End()

	if skip {
		return nil
	}

	full := common.RectFromSize(t.Size())
	ps := passState{}
	for _, dc := range queue.Commands() {
		if dc.Layout == geometry.LayoutTextured {
			if _, bad := failed[dc.Texture]; bad || !dc.Texture.Valid() {
				continue
			}
		}
		st, ok := r.states.State(dc.StateID)
		if !ok {
			common.Logger().Error("draw command references unknown state", "state", dc.StateID)
			continue
		}
		if !r.bindState(pass, &ps, dc, st, full) {
			continue
		}

		if !ps.hasLayout || ps.layout != dc.Layout {
			region := solid
			if dc.Layout == geometry.LayoutTextured {
				region = textured
			}
			pass.SetVertexBuffer(region.Buffer, region.Offset)
			ps.layout, ps.hasLayout = dc.Layout, true
		}
		if dc.Layout == geometry.LayoutTextured && ps.texture != dc.Texture {
			pass.SetTexture(dc.Texture.GPU(), dc.Texture.Sampler())
			ps.texture = dc.Texture
		}

		pass.Draw(dc.VertexCount, 1, dc.VertexOffset)
		r.stats.DrawCalls++
		r.stats.Vertices += int(dc.VertexCount)
	}
	return nil
}

// bindState applies the pipeline, uniforms, viewport and scissor a command needs. It returns false
// when the command is fully clipped.
func (r *renderer) bindState(pass backend.RenderPass, ps *passState, dc command.DrawCommand, st state.State, full common.Rect) bool {
	clip := full
	if !st.ClipRect.Empty() {
		clip = st.ClipRect.Intersect(full)
		if clip.Empty() {
			return false
		}
	}

	p := r.pipelineFor(st, dc)
	if ps.pipeline != p {
		pass.SetPipeline(p.Backend())
		ps.pipeline = p
		ps.hasMatrix = false
		ps.texture = nil
		ps.uniforms = nil
		if vs := p.Shader(shader.ShaderTypeVertex); vs != nil {
			if layout, ok := vs.UniformLayout(shader.UniformBlockName); ok {
				ps.uniforms = shader.NewUniformBlock(layout)
			}
		}
	}

	m := state.ProjectionTransform(st)
	if ps.uniforms != nil && (!ps.hasMatrix || ps.matrix != m) {
		if err := ps.uniforms.SetMat4(shader.ProjectionTransformUniform, m); err != nil {
			common.Logger().Error("pack uniforms", "pipeline", p.Label(), "error", err)
		} else {
			pass.PushUniform(ps.uniforms.Bytes())
			ps.matrix, ps.hasMatrix = m, true
		}
	}

	if !ps.hasView || ps.viewport != st.Viewport {
		vp := st.Viewport
		if vp.Empty() {
			vp = full
		}
		pass.SetViewport(vp.X, vp.Y, vp.W, vp.H)
		ps.viewport, ps.hasView = st.Viewport, true
	}

	x, y, w, h := clip.Snapped()
	scissor := [4]uint32{x, y, w, h}
	if !ps.hasClip || ps.scissor != scissor {
		pass.SetScissor(x, y, w, h)
		ps.scissor, ps.hasClip = scissor, true
	}
	return true
}

// pipelineFor resolves the pipeline selected by the state's pipeline id, falling back to the built-in
// program for id 0, unknown ids and mismatched vertex layouts.
func (r *renderer) pipelineFor(st state.State, dc command.DrawCommand) pipeline.Pipeline {
	textured := dc.Layout == geometry.LayoutTextured
	if st.PipelineID != 0 {
		if p, ok := r.ctx.Pipelines.Variant(st.PipelineID, st.BlendMode, dc.Primitive, textured); ok {
			return p
		}
		common.Logger().Debug("pipeline variant unavailable", "id", st.PipelineID, "primitive", dc.Primitive.String(), "textured", textured)
	}
	return r.ctx.Pipelines.Get(st.BlendMode, dc.Primitive, textured)
}

// attachment returns the texture a target's pass renders into.
func (r *renderer) attachment(t *target.Target) (backend.Texture, error) {
	if t.IsPrimary() {
		return r.sub.AcquireSwapchain()
	}
	if t.GPU() == nil {
		return nil, ErrInvalidFrameBuffer
	}
	return t.GPU(), nil
}

// uploadTextures uploads every texture referenced by the queue that has staged pixels or no sampler
// yet. Textures that fail are returned so their draws are dropped.
func (r *renderer) uploadTextures(queue command.Queue) map[*texture.Texture]struct{} {
	var failed map[*texture.Texture]struct{}
	seen := make(map[*texture.Texture]struct{})
	for _, dc := range queue.Commands() {
		tex := dc.Texture
		if tex == nil {
			continue
		}
		if _, ok := seen[tex]; ok {
			continue
		}
		seen[tex] = struct{}{}
		if !tex.Pending() && tex.GPU() != nil && tex.Sampler() != nil {
			continue
		}
		if err := tex.Upload(r.ctx.Device); err != nil {
			common.Logger().Error("texture upload failed", "texture", tex.Label(), "error", err)
			if failed == nil {
				failed = make(map[*texture.Texture]struct{})
			}
			failed[tex] = struct{}{}
		}
	}
	return failed
}
