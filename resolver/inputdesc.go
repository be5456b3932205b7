package resolver

import (
	"fmt"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/reaper-jsfx/jsfxc/internal/compileerr"
)

var inputPropKeys = map[string]bool{
	"default_value": true, "min": true, "max": true, "increment": true,
	"description": true, "hidden": true, "shape": true,
}

var shapePropKeys = map[string]bool{
	"type": true, "midpoint": true, "exponent": true, "linear_automation": true,
}

var descPropKeys = map[string]bool{
	"description": true, "tags": true, "in_pins": true, "out_pins": true, "options": true,
}

var descOptionKeys = map[string]bool{
	"all_keyboard": true, "max_memory": true, "no_meter": true, "gfx": true,
}

var descGFXKeys = map[string]bool{"HZ": true, "idle_mode": true}

// registerInput validates stmt's property list (§4.2's "Input and Desc"),
// assigns the next slider number, and synthesizes the backing external
// float variable every Input mirrors.
func (r *Resolver) registerInput(stmt *ast.InputStmt, mod ast.Modifier, nextSlider *int) error {
	if stmt.Props != nil {
		seen := map[string]bool{}
		for _, p := range stmt.Props.Props {
			if !inputPropKeys[p.Key] {
				return compileerr.At(compileerr.InvalidPropertyValue, p.Ln, "input %q has no property %q", stmt.Name, p.Key)
			}
			if seen[p.Key] {
				return compileerr.At(compileerr.PropertyTwiceSet, p.Ln, "property %q set twice on input %q", p.Key, stmt.Name)
			}
			seen[p.Key] = true
		}
		stmt.Default = firstLiteralProp(stmt.Props, "default_value")
		stmt.Min = firstLiteralProp(stmt.Props, "min")
		stmt.Max = firstLiteralProp(stmt.Props, "max")
		stmt.Inc = firstLiteralProp(stmt.Props, "increment")
		stmt.Description = firstLiteralProp(stmt.Props, "description")
		stmt.Hidden = boolLiteralProp(stmt.Props, "hidden")

		if shapeProp := findProp(stmt.Props, "shape"); shapeProp != nil {
			if shapeProp.Nested == nil {
				return compileerr.At(compileerr.InvalidPropertyValue, shapeProp.Ln, "shape must be a property group")
			}
			for _, sp := range shapeProp.Nested.Props {
				if !shapePropKeys[sp.Key] {
					return compileerr.At(compileerr.InvalidPropertyValue, sp.Ln, "input %q has no shape property %q", stmt.Name, sp.Key)
				}
			}
			switch firstLiteralProp(shapeProp.Nested, "type") {
			case "log":
				stmt.Shape.Kind = ast.ShapeLog
				stmt.Shape.Midpoint = firstLiteralProp(shapeProp.Nested, "midpoint")
				if stmt.Shape.Midpoint == "" {
					return compileerr.At(compileerr.PropertyConflict, shapeProp.Ln, "log shape on input %q requires midpoint", stmt.Name)
				}
				if findProp(shapeProp.Nested, "exponent") != nil {
					return compileerr.At(compileerr.PropertyConflict, shapeProp.Ln, "log shape on input %q forbids exponent", stmt.Name)
				}
			case "poly":
				stmt.Shape.Kind = ast.ShapePoly
				if findProp(shapeProp.Nested, "midpoint") != nil {
					return compileerr.At(compileerr.PropertyConflict, shapeProp.Ln, "poly shape on input %q forbids midpoint", stmt.Name)
				}
				stmt.Shape.Exponent = firstLiteralProp(shapeProp.Nested, "exponent")
			default:
				return compileerr.At(compileerr.InvalidPropertyValue, shapeProp.Ln, "input %q shape type must be log or poly", stmt.Name)
			}
			stmt.Shape.LinearAutomation = boolLiteralProp(shapeProp.Nested, "linear_automation")
		}
	}

	stmt.SliderNumber = *nextSlider
	*nextSlider++

	stmt.Var = &ast.VarDeclStmt{
		Ty:           ast.Type{Expr: primitiveExpr("float")},
		Name:         stmt.Name,
		ExternalName: fmt.Sprintf("slider%d", stmt.SliderNumber),
		Mod:          ast.Modifier{Public: mod.Public, External: true},
		Init:         nil,
		UniqueName:   -1,
		InputStmt:    stmt,
		Ln:           stmt.Ln,
	}
	return nil
}

// resolveDesc validates a module's (at most one) Desc block.
func (r *Resolver) resolveDesc(stmt *ast.DescStmt) error {
	if r.sawDesc {
		return compileerr.At(compileerr.PropertyConflict, stmt.Ln, "a module may declare at most one desc block")
	}
	r.sawDesc = true

	if stmt.Props != nil {
		for _, p := range stmt.Props.Props {
			if !descPropKeys[p.Key] {
				return compileerr.At(compileerr.InvalidPropertyValue, p.Ln, "desc has no property %q", p.Key)
			}
			if p.Key == "options" && p.Nested != nil {
				for _, op := range p.Nested.Props {
					if !descOptionKeys[op.Key] {
						return compileerr.At(compileerr.InvalidPropertyValue, op.Ln, "desc options has no property %q", op.Key)
					}
					if op.Key == "gfx" && op.Nested != nil {
						for _, gp := range op.Nested.Props {
							if !descGFXKeys[gp.Key] {
								return compileerr.At(compileerr.InvalidPropertyValue, gp.Ln, "desc options.gfx has no property %q", gp.Key)
							}
						}
					}
				}
			}
		}
	}

	if stmt.InPins != nil && stmt.NoInPins {
		return compileerr.At(compileerr.PropertyConflict, stmt.Ln, "in_pins cannot be both listed and empty")
	}
	if stmt.OutPins != nil && stmt.NoOutPins {
		return compileerr.At(compileerr.PropertyConflict, stmt.Ln, "out_pins cannot be both listed and empty")
	}
	if stmt.Options.GFX.IdleMode != "" && stmt.Options.GFX.IdleMode != "when_closed" && stmt.Options.GFX.IdleMode != "always" {
		return compileerr.At(compileerr.InvalidPropertyValue, stmt.Ln, "gfx idle_mode must be when_closed or always")
	}
	return nil
}

func firstLiteralProp(pl *ast.PropertyList, key string) string {
	if p := findProp(pl, key); p != nil {
		if lit, ok := p.Value.(*ast.LiteralExpr); ok {
			return lit.Payload
		}
	}
	return ""
}

func boolLiteralProp(pl *ast.PropertyList, key string) bool {
	return firstLiteralProp(pl, key) == "true"
}

func findProp(pl *ast.PropertyList, key string) *ast.Property {
	if pl == nil {
		return nil
	}
	for _, p := range pl.Props {
		if p.Key == key {
			return p
		}
	}
	return nil
}
