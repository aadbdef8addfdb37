package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/shader"
)

// ErrCacheNotInitialized is the panic value of Get when Init has not completed.
var ErrCacheNotInitialized = errors.New("pipeline: cache not initialized")

type cache struct {
	mu          *sync.Mutex
	device      backend.Device
	compiler    shader.Compiler
	solid       shader.Program
	textured    shader.Program
	preset      bool
	pipelines   map[Key]Pipeline
	variants    map[int]map[Key]Pipeline
	nextID      int
	initialized bool
}

// Cache holds one pipeline per primitive, blend mode and texture flag for the built-in programs, and
// the same set for every registered custom program. Built-in pipelines have id 0.
type Cache interface {
	// Init compiles the built-in programs for the backend and eagerly builds every pipeline.
	// Calling Init again rebuilds the cache.
	//
	// Parameters:
	//   - backendName: the backend name used to select the built-in shader sources
	//
	// Returns:
	//   - error: an error if shaders fail to compile or a pipeline cannot be created
	Init(backendName string) error

	// Get looks up a pipeline. It panics with ErrCacheNotInitialized if Init has not succeeded.
	//
	// Parameters:
	//   - blend: the blend mode
	//   - prim: the primitive topology
	//   - textured: whether the pipeline samples a texture
	//
	// Returns:
	//   - Pipeline: the pipeline
	Get(blend BlendMode, prim backend.Primitive, textured bool) Pipeline

	// Register builds a pipeline for every primitive and blend mode from a custom program. The
	// program's vertex input must match the solid or the textured vertex layout.
	//
	// Parameters:
	//   - program: the compiled program
	//   - textured: whether the program samples a texture
	//
	// Returns:
	//   - int: the pipeline id, greater than zero
	//   - error: an error if a pipeline cannot be created
	Register(program shader.Program, textured bool) (int, error)

	// Variant looks up a pipeline built from a registered program.
	//
	// Parameters:
	//   - id: the id returned by Register
	//   - blend: the blend mode
	//   - prim: the primitive topology
	//   - textured: whether the draw samples a texture
	//
	// Returns:
	//   - Pipeline: the pipeline
	//   - bool: false for unknown ids and when the program's vertex layout differs from the draw's
	Variant(id int, blend BlendMode, prim backend.Primitive, textured bool) (Pipeline, bool)

	// Clear releases every pipeline, including registered ones, and returns the cache to the
	// uninitialized state.
	Clear()

	// Len returns the number of cached pipelines.
	//
	// Returns:
	//   - int: the pipeline count
	Len() int
}

var _ Cache = &cache{}

// NewCache creates an empty pipeline cache.
//
// Parameters:
//   - device: the device pipelines are created on
//   - compiler: the compiler used for the built-in programs
//   - opts: builder options
//
// Returns:
//   - Cache: the uninitialized cache
func NewCache(device backend.Device, compiler shader.Compiler, opts ...CacheBuilderOption) Cache {
	c := &cache{
		mu:        &sync.Mutex{},
		device:    device,
		compiler:  compiler,
		pipelines: make(map[Key]Pipeline),
		variants:  make(map[int]map[Key]Pipeline),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *cache) Init(backendName string) error {
	c.Clear()

	c.mu.Lock()
	defer c.mu.Unlock()

	solid, textured := c.solid, c.textured
	if !c.preset {
		var err error
		solid, textured, err = shader.BuiltinPrograms(c.compiler, backendName)
		if err != nil {
			return fmt.Errorf("pipeline: failed to compile built-in shaders: %w", err)
		}
	}

	built, err := buildSet(c.device, solid, false)
	if err != nil {
		return err
	}
	texturedSet, err := buildSet(c.device, textured, true)
	if err != nil {
		releaseSet(built)
		return err
	}
	for k, p := range texturedSet {
		built[k] = p
	}

	c.pipelines = built
	c.initialized = true
	common.Logger().Debug("pipeline cache initialized", "backend", backendName, "pipelines", len(built))
	return nil
}

func (c *cache) Get(blend BlendMode, prim backend.Primitive, textured bool) Pipeline {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		panic(ErrCacheNotInitialized)
	}
	p, ok := c.pipelines[Key{Primitive: prim, Blend: blend, Textured: textured}]
	if !ok {
		panic(fmt.Sprintf("pipeline: no pipeline for %s", Key{Primitive: prim, Blend: blend, Textured: textured}))
	}
	return p
}

func (c *cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	releaseSet(c.pipelines)
	for _, set := range c.variants {
		releaseSet(set)
	}
	c.pipelines = make(map[Key]Pipeline)
	c.variants = make(map[int]map[Key]Pipeline)
	c.initialized = false
}

func (c *cache) Register(program shader.Program, textured bool) (int, error) {
	set, err := buildSet(c.device, program, textured)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.variants[c.nextID] = set
	common.Logger().Debug("pipeline registered", "id", c.nextID, "textured", textured, "pipelines", len(set))
	return c.nextID, nil
}

func (c *cache) Variant(id int, blend BlendMode, prim backend.Primitive, textured bool) (Pipeline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	set, ok := c.variants[id]
	if !ok {
		return nil, false
	}
	p, ok := set[Key{Primitive: prim, Blend: blend, Textured: textured}]
	return p, ok
}

func (c *cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.pipelines)
	for _, set := range c.variants {
		n += len(set)
	}
	return n
}

// buildSet creates one pipeline per primitive and blend mode from a program. Nothing is kept when
// any pipeline fails.
func buildSet(device backend.Device, program shader.Program, textured bool) (map[Key]Pipeline, error) {
	set := make(map[Key]Pipeline, len(backend.Primitives)*len(BlendModes))
	for _, prim := range backend.Primitives {
		for _, blend := range BlendModes {
			key := Key{Primitive: prim, Blend: blend, Textured: textured}
			p, err := NewPipeline(device, key, program)
			if err != nil {
				releaseSet(set)
				return nil, err
			}
			set[key] = p
		}
	}
	return set, nil
}

func releaseSet(set map[Key]Pipeline) {
	for _, p := range set {
		p.Release()
	}
}
