package health

// Service encapsulates health-related checks.
type Service struct {
	model string
}

// NewService constructs a new health service reporting the configured model.
func NewService(model string) *Service {
	return &Service{model: model}
}

// Status returns a simple health payload.
func (s *Service) Status() map[string]any {
	return map[string]any{"ok": true, "model": s.model}
}
