package tool

import (
	"strings"

	"github.com/cloudwego/eino/schema"
	promptx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/prompt"
)

func toolInfos(specs []promptx.ToolSpec) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(specs))
	for _, spec := range specs {
		params := make(map[string]*schema.ParameterInfo, len(spec.Parameters))
		for _, p := range spec.Parameters {
			params[p.Name] = &schema.ParameterInfo{
				Type:     dataType(p.Type),
				Desc:     p.Description,
				Required: p.Required,
				Enum:     p.Enum,
			}
		}
		infos = append(infos, &schema.ToolInfo{
			Name:        spec.Name,
			Desc:        spec.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return infos
}

func dataType(t string) schema.DataType {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "integer", "int":
		return schema.Integer
	case "number", "float":
		return schema.Number
	case "boolean", "bool":
		return schema.Boolean
	case "array":
		return schema.Array
	case "object":
		return schema.Object
	default:
		return schema.String
	}
}
