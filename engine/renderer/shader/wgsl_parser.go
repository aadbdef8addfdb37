package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
)

// wgslVertexFormatMap maps WGSL type names to their corresponding backend vertex format and byte size
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {backend.VertexFormatFloat32, 4},
	"vec2f":     {backend.VertexFormatFloat32x2, 8},
	"vec2<f32>": {backend.VertexFormatFloat32x2, 8},
	"vec3f":     {backend.VertexFormatFloat32x3, 12},
	"vec3<f32>": {backend.VertexFormatFloat32x3, 12},
	"vec4f":     {backend.VertexFormatFloat32x4, 16},
	"vec4<f32>": {backend.VertexFormatFloat32x4, 16},
	"i32":       {backend.VertexFormatSint32, 4},
	"u32":       {backend.VertexFormatUint32, 4},
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	// The type capture (.+) is greedy to handle parameterized types like array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> uniforms: Uniforms;
	// or handle types: @group(1) @binding(0) var u_Texture: texture_2d<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseVertexLayouts extracts vertex layouts from WGSL source code, one per struct that is a pure
// vertex input (has @location attributes but no @builtin fields). Structs containing types with no
// backend vertex format are skipped.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - []backend.VertexLayout: vertex layouts in declaration order
func parseVertexLayouts(source string) []backend.VertexLayout {
	var result []backend.VertexLayout
	structs := parseStructBlocks(stripComments(source))

	for _, ps := range structs {
		if !isVertexInputStruct(ps) {
			continue
		}
		layout, ok := buildVertexLayout(ps)
		if !ok {
			continue
		}
		result = append(result, layout)
	}
	return result
}

// parseBindings extracts all @group(N) @binding(M) resource declarations from WGSL source,
// sorted by group then binding. Buffer bindings carry the byte size of their bound type.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - []Binding: the resource bindings
func parseBindings(source string) []Binding {
	cleaned := stripComments(source)
	structSizes := computeStructSizes(parseStructBlocks(cleaned))

	var bindings []Binding
	for _, match := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		b := Binding{
			Group:    uint32(group),
			Binding:  uint32(binding),
			Name:     strings.TrimSpace(match[4]),
			TypeName: strings.TrimSpace(match[5]),
			Kind:     classifyResource(strings.TrimSpace(match[3]), strings.TrimSpace(match[5])),
		}
		if b.Kind == ResourceUniform || b.Kind == ResourceStorage {
			if layout, ok := resolveTypeLayout(b.TypeName, structSizes); ok {
				b.Size = layout.size
			}
		}
		bindings = append(bindings, b)
	}

	sort.Slice(bindings, func(i, j int) bool {
		if bindings[i].Group != bindings[j].Group {
			return bindings[i].Group < bindings[j].Group
		}
		return bindings[i].Binding < bindings[j].Binding
	})
	return bindings
}

// parseUniformLayouts resolves the struct layout of every uniform buffer binding, including the byte
// offset of each top level field.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - bindings: the bindings parsed from the same source
//
// Returns:
//   - []UniformLayout: one layout per uniform binding whose type could be resolved
func parseUniformLayouts(source string, bindings []Binding) []UniformLayout {
	structs := parseStructBlocks(stripComments(source))
	structSizes := computeStructSizes(structs)
	byName := make(map[string]parsedStruct, len(structs))
	for _, ps := range structs {
		byName[ps.name] = ps
	}

	var layouts []UniformLayout
	for _, b := range bindings {
		if b.Kind != ResourceUniform {
			continue
		}
		layout := UniformLayout{
			Name:     b.Name,
			TypeName: b.TypeName,
			Group:    b.Group,
			Binding:  b.Binding,
			Size:     b.Size,
		}
		if ps, ok := byName[b.TypeName]; ok {
			fields, ok := computeFieldOffsets(ps, structSizes)
			if !ok {
				continue
			}
			layout.Fields = fields
		} else if prim, ok := resolveTypeLayout(b.TypeName, structSizes); ok {
			layout.Fields = []UniformField{{Name: b.Name, TypeName: b.TypeName, Offset: 0, Size: prim.size}}
		} else {
			continue
		}
		layouts = append(layouts, layout)
	}
	return layouts
}

// parseEntryPoint extracts the entry point function name for the given shader type
// from WGSL source. Returns an empty string if no matching entry point annotation is found.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - shaderType: the shader type to search for (ShaderTypeVertex or ShaderTypeFragment)
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func parseEntryPoint(source string, shaderType ShaderType) string {
	cleaned := stripComments(source)

	var re *regexp.Regexp
	switch shaderType {
	case ShaderTypeVertex:
		re = vertexEntryRegex
	case ShaderTypeFragment:
		re = fragmentEntryRegex
	default:
		return ""
	}

	if match := re.FindStringSubmatch(cleaned); match != nil {
		return match[1]
	}
	return ""
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))

	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}
	return structs
}

// parseStructFields parses the body of a struct block into individual fields,
// extracting @location and @builtin attributes along with the field name and type
//
// Parameters:
//   - body: the content between { and } of a struct declaration
//
// Returns:
//   - []parsedField: all fields found in the struct body
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var field parsedField
		if builtinRegex.MatchString(line) {
			field.isBuiltin = true
		}

		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			loc, err := strconv.Atoi(locMatch[1])
			if err == nil {
				field.location = loc
			}
		} else {
			field.location = -1
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])
		fields = append(fields, field)
	}
	return fields
}
