package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
	promptx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/prompt"
)

const (
	ToolLocationInfo  = "get_location_info"
	ToolSearchManual  = "search_admin_manual"
	ToolSaveComplaint = "save_complaint_to_db"
)

// Deps are the process-wide collaborators shared by every request. Every
// field is optional. Storage arrives per request through contract.ToolEnv.
type Deps struct {
	Geocoder   Geocoder
	Redactor   Redactor
	Publishers []Publisher

	Now   func() time.Time
	NewID func() string
	Rand  func() float64
}

type handler func(ctx context.Context, args map[string]any, env contractx.ToolEnv) contractx.ToolOutcome

// Registry is the fixed set of tools advertised to the model.
type Registry struct {
	profile  *promptx.Profile
	deps     Deps
	schemas  []*schema.ToolInfo
	handlers map[string]handler
}

var _ contractx.ToolRegistry = (*Registry)(nil)

func New(profile *promptx.Profile, deps Deps) (*Registry, error) {
	if profile == nil {
		return nil, fmt.Errorf("%w: profile is required", contractx.ErrValidation)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Rand == nil {
		deps.Rand = defaultRand
	}
	if deps.Redactor == nil {
		deps.Redactor = NewPatternRedactor()
	}

	r := &Registry{profile: profile, deps: deps}
	known := map[string]handler{
		ToolLocationInfo:  r.lookupLocation,
		ToolSearchManual:  r.searchManual,
		ToolSaveComplaint: r.saveComplaint,
	}

	r.handlers = make(map[string]handler, len(profile.Tools))
	for _, spec := range profile.Tools {
		h, ok := known[spec.Name]
		if !ok {
			return nil, fmt.Errorf("%w: no handler for tool %s", contractx.ErrValidation, spec.Name)
		}
		r.handlers[spec.Name] = h
	}
	r.schemas = toolInfos(profile.Tools)
	return r, nil
}

func (r *Registry) Schemas() []*schema.ToolInfo {
	return append([]*schema.ToolInfo(nil), r.schemas...)
}

func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any, env contractx.ToolEnv) (out contractx.ToolOutcome) {
	name = strings.TrimSpace(name)
	h, ok := r.handlers[name]
	if !ok {
		log.Ctx(ctx).Warn().Str("tool", name).Msg("model requested unknown tool")
		return failure("unknown tool: " + name)
	}
	if args == nil {
		args = map[string]any{}
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Ctx(ctx).Error().Str("tool", name).Interface("panic", rec).Msg("tool panicked")
			out = failure("tool execution failed")
		}
	}()

	start := time.Now()
	out = h(ctx, args, env)
	log.Ctx(ctx).Debug().
		Str("tool", name).
		Dur("took", time.Since(start)).
		Bool("complaint_saved", out.ComplaintID != "").
		Msg("tool invoked")
	return out
}

func failure(msg string) contractx.ToolOutcome {
	return contractx.ToolOutcome{Content: encode(map[string]any{
		"status": "error",
		"error":  msg,
	})}
}

func success(fields map[string]any) contractx.ToolOutcome {
	fields["status"] = "success"
	return contractx.ToolOutcome{Content: encode(fields)}
}

func encode(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return `{"status":"error","error":"encode tool result"}`
	}
	return string(raw)
}
