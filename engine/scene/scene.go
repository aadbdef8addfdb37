package scene

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/camera"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer"
)

// Scene is a drawable layer with an optional camera. The engine draws active scenes each frame in
// ascending z-index order. Scenes can be hot-swapped via the Active flag to switch between different
// views or levels. Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Camera returns the scene's camera, or nil when the scene draws in screen coordinates.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the new camera, or nil for screen coordinates
	SetCamera(cam camera.Camera)

	// SetDrawCallback registers the function that records the scene's draws.
	//
	// Parameters:
	//   - callback: function receiving the renderer and the delta time in seconds
	SetDrawCallback(callback func(r renderer.Renderer, deltaTime float32))

	// Resize forwards a new drawable size to the scene's camera.
	//
	// Parameters:
	//   - width, height: the drawable size in pixels
	Resize(width, height int)

	// Draw records the scene into the current frame. The renderer state is pushed first and the camera
	// view becomes the transform, so nothing the callback changes leaks into later scenes. Inactive
	// scenes and scenes without a callback draw nothing.
	//
	// Parameters:
	//   - r: the renderer, inside BeginFrame/EndFrame
	//   - deltaTime: elapsed time since the last frame in seconds
	Draw(r renderer.Renderer, deltaTime float32)
}

type scene struct {
	mu *sync.Mutex

	name   string
	active bool
	camera camera.Camera
	draw   func(r renderer.Renderer, deltaTime float32)
}

var _ Scene = &scene{}

// NewScene creates a new inactive Scene.
//
// Parameters:
//   - name: the scene's identifier
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:   &sync.Mutex{},
		name: name,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = cam
}

func (s *scene) SetDrawCallback(callback func(r renderer.Renderer, deltaTime float32)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draw = callback
}

func (s *scene) Resize(width, height int) {
	if cam := s.Camera(); cam != nil {
		cam.SetViewport(common.Size{W: width, H: height})
	}
}

func (s *scene) Draw(r renderer.Renderer, deltaTime float32) {
	s.mu.Lock()
	active, cam, draw, name := s.active, s.camera, s.draw, s.name
	s.mu.Unlock()

	if !active || draw == nil {
		return
	}
	if err := r.PushState(); err != nil {
		common.Logger().Error("scene skipped", "scene", name, "error", err)
		return
	}
	defer func() {
		if err := r.PopState(); err != nil {
			common.Logger().Error("scene state", "scene", name, "error", err)
		}
	}()

	if cam != nil {
		r.SetTransform(cam.View())
	}
	draw(r, deltaTime)
}
