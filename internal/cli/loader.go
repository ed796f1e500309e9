package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/shoal/internal/schema"
)

// LoadResult contains the definitions loaded from a schema directory.
type LoadResult struct {
	Definitions []schema.Definition
	FileCount   int // Number of CUE files found
}

// LoadError represents an error that occurred during definition loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDefinitions loads schema definitions from all CUE files in dir.
//
// Definitions live under a top-level "schemas" struct:
//
//	schemas: cafe: {
//		description: "A cafe"
//		fields: name: {type: "str"}
//		fields: menu: {type: "relation_list", schema: "menu_item"}
//	}
//
// Structural problems beyond CUE syntax (unknown types, missing relation
// targets) are left to the build engine so all definitions get validated
// together.
func LoadDefinitions(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	result := &LoadResult{FileCount: len(cueFiles)}

	schemasVal := value.LookupPath(cue.ParsePath("schemas"))
	if !schemasVal.Exists() {
		return nil, &LoadError{Code: ErrCodeNoSchemas, Message: "no \"schemas\" declaration found"}
	}

	iter, iterErr := schemasVal.Fields()
	if iterErr != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("iterating schemas: %v", iterErr)}
	}
	for iter.Next() {
		def, defErr := extractDefinition(iter.Label(), iter.Value())
		if defErr != nil {
			return nil, defErr
		}
		result.Definitions = append(result.Definitions, *def)
	}

	if len(result.Definitions) == 0 {
		return nil, &LoadError{Code: ErrCodeNoSchemas, Message: fmt.Sprintf("no schemas defined in %s", dir)}
	}

	// Deterministic input order regardless of CUE evaluation order.
	sort.Slice(result.Definitions, func(i, j int) bool {
		return result.Definitions[i].Name < result.Definitions[j].Name
	})

	return result, nil
}

// extractDefinition decodes a single schema declaration from a CUE value.
func extractDefinition(name string, v cue.Value) (*schema.Definition, *LoadError) {
	def := &schema.Definition{Name: name}

	descVal := v.LookupPath(cue.ParsePath("description"))
	if descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return nil, &LoadError{
				Code:    ErrCodeBuildFailed,
				Message: fmt.Sprintf("schema %q: description must be a string: %v", name, err),
				Pos:     descVal.Pos(),
			}
		}
		def.Description = desc
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if fieldsVal.Exists() {
		iter, err := fieldsVal.Fields()
		if err != nil {
			return nil, &LoadError{
				Code:    ErrCodeBuildFailed,
				Message: fmt.Sprintf("schema %q: iterating fields: %v", name, err),
				Pos:     fieldsVal.Pos(),
			}
		}
		for iter.Next() {
			field, fieldErr := extractField(name, iter.Label(), iter.Value())
			if fieldErr != nil {
				return nil, fieldErr
			}
			def.Fields = append(def.Fields, *field)
		}
	}

	return def, nil
}

// extractField decodes a single field declaration. Scalar fields carry only
// a type; relation fields carry a relation kind as type plus a schema target.
func extractField(schemaName, fieldName string, v cue.Value) (*schema.Field, *LoadError) {
	field := &schema.Field{Name: fieldName}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return nil, &LoadError{
			Code:    ErrCodeBuildFailed,
			Message: fmt.Sprintf("schema %q field %q: missing type", schemaName, fieldName),
			Pos:     v.Pos(),
		}
	}
	typ, err := typeVal.String()
	if err != nil {
		return nil, &LoadError{
			Code:    ErrCodeBuildFailed,
			Message: fmt.Sprintf("schema %q field %q: type must be a string: %v", schemaName, fieldName, err),
			Pos:     typeVal.Pos(),
		}
	}

	if schema.ValidRelationKinds[schema.RelationKind(typ)] {
		field.RelationKind = schema.RelationKind(typ)

		targetVal := v.LookupPath(cue.ParsePath("schema"))
		if !targetVal.Exists() {
			return nil, &LoadError{
				Code:    ErrCodeBuildFailed,
				Message: fmt.Sprintf("schema %q field %q: relation missing target schema", schemaName, fieldName),
				Pos:     v.Pos(),
			}
		}
		target, err := targetVal.String()
		if err != nil {
			return nil, &LoadError{
				Code:    ErrCodeBuildFailed,
				Message: fmt.Sprintf("schema %q field %q: target schema must be a string: %v", schemaName, fieldName, err),
				Pos:     targetVal.Pos(),
			}
		}
		field.RelationTarget = target
		return field, nil
	}

	field.Type = schema.FieldType(typ)
	return field, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
