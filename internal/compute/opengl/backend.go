// Package opengl runs the force and position stages as GL compute shaders.
package opengl

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/san-kum/nbody/internal/body"
	"github.com/san-kum/nbody/internal/compute"
)

var (
	//go:embed shaders/force.comp
	forceShaderSource string

	//go:embed shaders/integrate.comp
	integrateShaderSource string
)

// maxGLGroupSize is the smallest GL_MAX_COMPUTE_WORK_GROUP_SIZE a 4.3
// implementation may report.
const maxGLGroupSize = 1024

// Backend runs both stages as compute shaders. The bodies are uploaded
// before and read back after every stage so the host state stays current.
// Until Init succeeds both stages run on the CPU backend.
type Backend struct {
	layout           compute.Layout
	cpu              *compute.CPUBackend
	ForceProgram     uint32
	IntegrateProgram uint32
	SSBO             uint32
	capacity         int
	Initialized      bool
}

var _ compute.Backend = (*Backend)(nil)

func New(layout compute.Layout) *Backend {
	return &Backend{layout: layout, cpu: compute.NewCPUBackend(layout)}
}

// Init compiles the shaders. A GL 4.3 context must be current on the calling
// thread, and every later call must come from that thread.
func (c *Backend) Init() error {
	if err := c.layout.Validate(); err != nil {
		return err
	}
	if c.layout.GroupSize > maxGLGroupSize || c.layout.TileWidth > maxGLGroupSize {
		return fmt.Errorf("%w: group size and tile width must not exceed %d", compute.ErrLayout, maxGLGroupSize)
	}
	if err := gl.Init(); err != nil {
		return fmt.Errorf("%w: failed to init opengl: %v", compute.ErrUnavailable, err)
	}

	header := fmt.Sprintf("#version 430\n#define TILE_WIDTH %d\n#define GROUP_SIZE %d\n#define FANOUT %d\n",
		c.layout.TileWidth, c.layout.GroupSize, c.layout.Fanout)

	force, err := createComputeProgram(header + forceShaderSource)
	if err != nil {
		return err
	}
	integrate, err := createComputeProgram(header + integrateShaderSource)
	if err != nil {
		gl.DeleteProgram(force)
		return err
	}
	c.ForceProgram = force
	c.IntegrateProgram = integrate

	gl.GenBuffers(1, &c.SSBO)
	c.Initialized = true
	return nil
}

func (c *Backend) Name() string {
	if !c.Initialized {
		return "opengl (not initialized)"
	}
	return "opengl"
}

func (c *Backend) Available() bool { return c.Initialized }

func (c *Backend) Cleanup() {
	if !c.Initialized {
		return
	}
	gl.DeleteBuffers(1, &c.SSBO)
	gl.DeleteProgram(c.ForceProgram)
	gl.DeleteProgram(c.IntegrateProgram)
	c.Initialized = false
	c.capacity = 0
}

func (c *Backend) BodyForce(s *body.State, dt float32) {
	if !c.Initialized {
		c.cpu.BodyForce(s, dt)
		return
	}
	n := s.Len()
	if n == 0 {
		return
	}
	c.upload(s)
	c.dispatch(c.ForceProgram, dt, n, uint32(c.layout.Groups(n)))
	c.download(s)
}

func (c *Backend) IntegratePositions(s *body.State, dt float32) {
	if !c.Initialized {
		c.cpu.IntegratePositions(s, dt)
		return
	}
	n := s.Len()
	if n == 0 {
		return
	}
	c.upload(s)
	c.dispatch(c.IntegrateProgram, dt, n, uint32(c.layout.Tiles(n)))
	c.download(s)
}

func (c *Backend) dispatch(program uint32, dt float32, n int, groups uint32) {
	gl.UseProgram(program)

	locDt := gl.GetUniformLocation(program, gl.Str("dt\x00"))
	gl.Uniform1f(locDt, dt)

	locN := gl.GetUniformLocation(program, gl.Str("numBodies\x00"))
	gl.Uniform1i(locN, int32(n))

	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 0, c.SSBO)
	gl.DispatchCompute(groups, 1, 1)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT | gl.BUFFER_UPDATE_BARRIER_BIT)
}

func (c *Backend) upload(s *body.State) {
	size := s.Len() * body.FieldsPerBody * 4
	ptr := gl.Ptr(&s.Bodies()[0].X)

	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, c.SSBO)
	if s.Len() != c.capacity {
		gl.BufferData(gl.SHADER_STORAGE_BUFFER, size, ptr, gl.DYNAMIC_COPY)
		c.capacity = s.Len()
		return
	}
	gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, 0, size, ptr)
}

func (c *Backend) download(s *body.State) {
	size := s.Len() * body.FieldsPerBody * 4
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, c.SSBO)
	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, size, gl.Ptr(&s.Bodies()[0].X))
}

func createComputeProgram(source string) (uint32, error) {
	shader := gl.CreateShader(gl.COMPUTE_SHADER)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile compute shader: %v", log)
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, shader)
	gl.LinkProgram(program)
	gl.DeleteShader(shader)

	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link program")
	}

	return program, nil
}
