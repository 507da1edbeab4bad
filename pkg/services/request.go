package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/clearway/clearway/pkg/approval"
	"github.com/clearway/clearway/pkg/compliance"
	"github.com/clearway/clearway/pkg/config"
	"github.com/clearway/clearway/pkg/eventbus"
	"github.com/clearway/clearway/pkg/events"
	"github.com/clearway/clearway/pkg/models"
	"github.com/clearway/clearway/pkg/notify"
	"github.com/clearway/clearway/pkg/orchestrator"
	"github.com/clearway/clearway/pkg/persistence"
	"github.com/clearway/clearway/pkg/risk"
	"github.com/clearway/clearway/pkg/taskgraph"
)

// Request is the onboarding request service.
type Request struct {
	persistence persistence.Persistence
	registry    *compliance.Registry
	scorer      *risk.Scorer
	evaluator   *compliance.Evaluator
	router      *approval.Router
	builder     *taskgraph.Builder
	engine      *orchestrator.Engine
	publisher   eventbus.EventPublisher
	notifier    notify.Sink
	validator   *validator.Validate
	logger      *slog.Logger
}

// NewRequest creates the request service with its evaluation pipeline.
func NewRequest(
	persistence persistence.Persistence,
	registry *compliance.Registry,
	engine *orchestrator.Engine,
	publisher eventbus.EventPublisher,
	notifier notify.Sink,
	cfg *config.Config,
	logger *slog.Logger,
) *Request {
	return &Request{
		persistence: persistence,
		registry:    registry,
		scorer:      risk.NewScorer(cfg.Risk),
		evaluator:   compliance.NewEvaluator(registry),
		router:      approval.NewRouter(cfg.Approval),
		builder:     taskgraph.NewBuilder(cfg.TaskGraph),
		engine:      engine,
		publisher:   publisher,
		notifier:    notifier,
		validator:   validator.New(),
		logger:      logger.With("module", "request_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Request) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := s.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Submit validates and stores a new request, then runs it through evaluation
// and approval routing.
func (s *Request) Submit(ctx context.Context, request *models.Request) (*models.Request, error) {
	if err := s.validator.Struct(request); err != nil {
		return nil, NewValidationError("Submit", err.Error(), ErrInvalidRequest)
	}

	now := time.Now().UTC()
	request.ID = uuid.New().String()
	request.Status = models.RequestStatusSubmitted
	request.Revision = 0
	request.RiskScore = 0
	request.PendingSignOffs = nil
	request.CreatedAt = now
	request.UpdatedAt = now
	request.ApprovedAt = nil

	if err := s.persistence.RequestRepository().Save(ctx, request); err != nil {
		return nil, err
	}

	s.audit(ctx, models.NewAuditEntry(request.Requester, "request_submitted", "request", request.ID,
		nil,
		map[string]any{"status": request.Status, "revision": request.Revision},
	))

	submitted := events.RequestSubmitted{
		BaseEvent: events.NewBaseEvent(events.RequestSubmittedEvent, request.ID),
		Requester: request.Requester,
		Revision:  request.Revision,
	}
	s.publishBestEffort(ctx, request.ID, submitted)

	if err := s.evaluate(ctx, request); err != nil {
		return nil, err
	}

	// The orchestrator may have advanced the request; return the stored state.
	return s.persistence.RequestRepository().GetByID(ctx, request.ID)
}

// evaluate scores risk and checks compliance concurrently, joins the results
// and routes the approval path.
func (s *Request) evaluate(ctx context.Context, request *models.Request) error {
	before := request.Status
	request.Status = models.RequestStatusEvaluating
	request.UpdatedAt = time.Now().UTC()

	if err := s.persistence.RequestRepository().Save(ctx, request); err != nil {
		return err
	}

	s.audit(ctx, models.NewAuditEntry("system", "evaluation_started", "request", request.ID,
		map[string]any{"status": before},
		map[string]any{"status": request.Status},
	))

	var (
		wg       sync.WaitGroup
		score    float64
		scoreErr error
		results  []*models.ComplianceCheckResult
		evalErr  error
	)

	wg.Add(2)

	go func() {
		defer wg.Done()

		score, scoreErr = s.scorer.Score(risk.InputsFromRequest(request))
	}()

	go func() {
		defer wg.Done()

		results, evalErr = s.evaluator.Evaluate(ctx, request)
	}()

	wg.Wait()

	if scoreErr != nil {
		return NewValidationError("evaluate", scoreErr.Error(), scoreErr)
	}

	if evalErr != nil {
		return fmt.Errorf("compliance evaluation failed: %w", evalErr)
	}

	for _, result := range results {
		if err := s.persistence.ComplianceResultRepository().Append(ctx, result); err != nil {
			return err
		}
	}

	request.RiskScore = score

	outcome := s.router.Route(request, results)
	request.Status = outcome.Status
	request.PendingSignOffs = outcome.SignOffs
	request.UpdatedAt = time.Now().UTC()

	if err := s.persistence.RequestRepository().Save(ctx, request); err != nil {
		return err
	}

	violations := 0
	for _, result := range results {
		violations += len(result.Violations)
	}

	s.audit(ctx, models.NewAuditEntry("system", "request_evaluated", "request", request.ID,
		map[string]any{"status": models.RequestStatusEvaluating},
		map[string]any{"status": request.Status, "risk_score": score, "violations": violations},
	))

	evaluated := events.RequestEvaluated{
		BaseEvent:  events.NewBaseEvent(events.RequestEvaluatedEvent, request.ID),
		RiskScore:  score,
		Status:     request.Status,
		Violations: violations,
		Reasons:    outcome.Reasons,
	}
	s.publishBestEffort(ctx, request.ID, evaluated)

	s.logger.InfoContext(ctx, "Request evaluated",
		"request_id", request.ID, "risk_score", score,
		"status", request.Status, "violations", violations)

	switch request.Status {
	case models.RequestStatusAutoApproved:
		return s.approve(ctx, request, "system", "auto")
	case models.RequestStatusEnhancedReview:
		s.notifyBestEffort(ctx, &notify.Notification{
			RequestID: request.ID,
			Recipient: request.PendingSignOffs[0],
			Channel:   notify.ChannelTicket,
			Kind:      notify.KindSignOffNeeded,
			Message:   fmt.Sprintf("%s sign-off required", request.PendingSignOffs[0]),
			Details:   map[string]any{"pending": request.PendingSignOffs, "reasons": outcome.Reasons},
		})
	case models.RequestStatusManualReview:
		s.notifyBestEffort(ctx, &notify.Notification{
			RequestID: request.ID,
			Recipient: "review",
			Channel:   notify.ChannelTicket,
			Kind:      notify.KindDecision,
			Message:   "manual review required",
			Details:   map[string]any{"reasons": outcome.Reasons},
		})
	}

	return nil
}

// approve finalizes approval, builds the task graph and hands the request to
// the orchestrator. A cyclic template is recorded as construction_failed
// rather than returned as a caller error.
func (s *Request) approve(ctx context.Context, request *models.Request, approver, path string) error {
	before := request.Status
	now := time.Now().UTC()
	request.Status = models.RequestStatusApproved
	request.PendingSignOffs = nil
	request.ApprovedAt = &now
	request.UpdatedAt = now

	if err := s.persistence.RequestRepository().Save(ctx, request); err != nil {
		return err
	}

	s.audit(ctx, models.NewAuditEntry(approver, "request_approved", "request", request.ID,
		map[string]any{"status": before},
		map[string]any{"status": request.Status, "path": path},
	))

	approved := events.RequestApproved{
		BaseEvent: events.NewBaseEvent(events.RequestApprovedEvent, request.ID),
		Approver:  approver,
		Path:      path,
	}
	s.publishBestEffort(ctx, request.ID, approved)

	tasks, err := s.builder.Build(request)
	if err != nil {
		if errors.Is(err, taskgraph.ErrCyclicDependency) {
			request.Status = models.RequestStatusConstructionFailed
			request.UpdatedAt = time.Now().UTC()

			if saveErr := s.persistence.RequestRepository().Save(ctx, request); saveErr != nil {
				return saveErr
			}

			s.audit(ctx, models.NewAuditEntry("system", "construction_failed", "request", request.ID,
				map[string]any{"status": models.RequestStatusApproved},
				map[string]any{"status": request.Status, "error": err.Error()},
			))

			s.logger.ErrorContext(ctx, "Task graph construction failed",
				"request_id", request.ID, "error", err)

			return nil
		}

		return err
	}

	if err := s.persistence.TaskRepository().SaveAll(ctx, tasks); err != nil {
		return err
	}

	s.audit(ctx, models.NewAuditEntry("system", "tasks_created", "request", request.ID,
		nil,
		map[string]any{"tasks": len(tasks)},
	))

	return s.engine.Begin(ctx, request.ID)
}

// RequestDetails is the full view of one request.
type RequestDetails struct {
	Request           *models.Request                 `json:"request"`
	ComplianceResults []*models.ComplianceCheckResult `json:"compliance_results"`
	Tasks             []*models.WorkflowTask          `json:"tasks"`
}

// Get returns the request with its current compliance results and task states.
func (s *Request) Get(ctx context.Context, id string) (*RequestDetails, error) {
	request, err := s.persistence.RequestRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	results, err := s.persistence.ComplianceResultRepository().CurrentByRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	tasks, err := s.persistence.TaskRepository().ListByRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	return &RequestDetails{
		Request:           request,
		ComplianceResults: results,
		Tasks:             tasks,
	}, nil
}

// List returns every request, newest first. A non-empty status narrows the
// result to requests currently in that state; an unrecognized value is
// rejected rather than silently matching nothing.
func (s *Request) List(ctx context.Context, status models.RequestStatus) ([]*models.Request, error) {
	if status == "" {
		return s.persistence.RequestRepository().List(ctx)
	}

	if !status.Known() {
		return nil, fmt.Errorf("%w: %q", persistence.ErrInvalidRequestStatus, status)
	}

	return s.persistence.RequestRepository().ListByStatus(ctx, status)
}

// AuditTrail returns the audit entries recorded for a request.
func (s *Request) AuditTrail(ctx context.Context, id string) ([]*models.AuditEntry, error) {
	if _, err := s.persistence.RequestRepository().GetByID(ctx, id); err != nil {
		return nil, err
	}

	return s.persistence.AuditRepository().ListByEntity(ctx, "request", id)
}

// DecideInput is a human review resolution.
type DecideInput struct {
	RequestID string
	Decision  approval.Decision
	Stage     string // enhanced review sign-off stage
	Reviewer  string
	Reason    string
}

// Decide resolves a manual review decision or applies one enhanced-review
// sign-off stage.
func (s *Request) Decide(ctx context.Context, in *DecideInput) (*models.Request, error) {
	request, err := s.persistence.RequestRepository().GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}

	var (
		next      models.RequestStatus
		remaining []string
	)

	switch request.Status {
	case models.RequestStatusManualReview:
		next, err = s.router.Decide(request, in.Decision)
	case models.RequestStatusEnhancedReview:
		next, remaining, err = s.router.SignOff(request, in.Stage, in.Decision)
	default:
		return nil, fmt.Errorf("%w: request %s is %s", ErrNotReviewable, request.ID, request.Status)
	}

	if err != nil {
		return nil, err
	}

	before := request.Status

	if next == models.RequestStatusApproved {
		path := "manual"
		if before == models.RequestStatusEnhancedReview {
			path = "enhanced"
		}

		if err := s.approve(ctx, request, in.Reviewer, path); err != nil {
			return nil, err
		}

		return s.persistence.RequestRepository().GetByID(ctx, request.ID)
	}

	request.Status = next
	request.PendingSignOffs = remaining
	request.UpdatedAt = time.Now().UTC()

	if err := s.persistence.RequestRepository().Save(ctx, request); err != nil {
		return nil, err
	}

	s.audit(ctx, models.NewAuditEntry(in.Reviewer, "review_decision", "request", request.ID,
		map[string]any{"status": before},
		map[string]any{"status": request.Status, "decision": in.Decision, "stage": in.Stage, "reason": in.Reason},
	))

	switch next {
	case models.RequestStatusRejected:
		rejected := events.RequestRejected{
			BaseEvent: events.NewBaseEvent(events.RequestRejectedEvent, request.ID),
			Reviewer:  in.Reviewer,
			Reason:    in.Reason,
		}
		s.publishBestEffort(ctx, request.ID, rejected)

		s.notifyBestEffort(ctx, &notify.Notification{
			RequestID: request.ID,
			Recipient: request.Requester,
			Channel:   notify.ChannelEmail,
			Kind:      notify.KindDecision,
			Message:   "request rejected",
			Details:   map[string]any{"reviewer": in.Reviewer, "reason": in.Reason},
		})
	case models.RequestStatusNeedsChanges:
		changes := events.RequestChangesRequested{
			BaseEvent: events.NewBaseEvent(events.RequestChangesRequestedEvent, request.ID),
			Reviewer:  in.Reviewer,
			Reason:    in.Reason,
			Revision:  request.Revision,
		}
		s.publishBestEffort(ctx, request.ID, changes)

		s.notifyBestEffort(ctx, &notify.Notification{
			RequestID: request.ID,
			Recipient: request.Requester,
			Channel:   notify.ChannelEmail,
			Kind:      notify.KindDecision,
			Message:   "changes requested",
			Details:   map[string]any{"reviewer": in.Reviewer, "reason": in.Reason},
		})
	case models.RequestStatusEnhancedReview:
		s.notifyBestEffort(ctx, &notify.Notification{
			RequestID: request.ID,
			Recipient: remaining[0],
			Channel:   notify.ChannelTicket,
			Kind:      notify.KindSignOffNeeded,
			Message:   fmt.Sprintf("%s sign-off required", remaining[0]),
			Details:   map[string]any{"pending": remaining},
		})
	}

	return request, nil
}

// Resubmit re-enters a needs_changes request with updated fields, bumping the
// revision so the audit trail spans iterations.
func (s *Request) Resubmit(ctx context.Context, id string, updated *models.Request) (*models.Request, error) {
	request, err := s.persistence.RequestRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if request.Status != models.RequestStatusNeedsChanges {
		return nil, fmt.Errorf("%w: request %s is %s", ErrNotResubmittable, request.ID, request.Status)
	}

	if err := s.validator.Struct(updated); err != nil {
		return nil, NewValidationError("Resubmit", err.Error(), ErrInvalidRequest)
	}

	request.BusinessLine = updated.BusinessLine
	request.ApplicationType = updated.ApplicationType
	request.Purpose = updated.Purpose
	request.TechnicalRequirements = updated.TechnicalRequirements
	request.ComplianceRequirements = updated.ComplianceRequirements
	request.SLARequirements = updated.SLARequirements
	request.DataClassification = updated.DataClassification
	request.Priority = updated.Priority
	request.Frameworks = updated.Frameworks
	request.IntegrationCount = updated.IntegrationCount
	request.ExpectedUsers = updated.ExpectedUsers
	request.EstimatedCost = updated.EstimatedCost
	request.ExternalExposure = updated.ExternalExposure
	request.TargetDate = updated.TargetDate

	request.Revision++
	request.Status = models.RequestStatusSubmitted
	request.PendingSignOffs = nil
	request.UpdatedAt = time.Now().UTC()

	if err := s.persistence.RequestRepository().Save(ctx, request); err != nil {
		return nil, err
	}

	s.audit(ctx, models.NewAuditEntry(request.Requester, "request_resubmitted", "request", request.ID,
		map[string]any{"status": models.RequestStatusNeedsChanges, "revision": request.Revision - 1},
		map[string]any{"status": request.Status, "revision": request.Revision},
	))

	resubmitted := events.RequestSubmitted{
		BaseEvent: events.NewBaseEvent(events.RequestSubmittedEvent, request.ID),
		Requester: request.Requester,
		Revision:  request.Revision,
	}
	s.publishBestEffort(ctx, request.ID, resubmitted)

	if err := s.evaluate(ctx, request); err != nil {
		return nil, err
	}

	return s.persistence.RequestRepository().GetByID(ctx, request.ID)
}

// Cancel stops a request. Task cancellation and event publication are owned by
// the orchestration engine.
func (s *Request) Cancel(ctx context.Context, id, actor, reason string) (*models.Request, error) {
	if _, err := s.engine.Cancel(ctx, id, actor, reason); err != nil {
		return nil, err
	}

	return s.persistence.RequestRepository().GetByID(ctx, id)
}

// TaskCallback applies a team collaborator's task status report.
func (s *Request) TaskCallback(ctx context.Context, cb *orchestrator.Callback) (*models.WorkflowTask, error) {
	if err := s.engine.HandleCallback(ctx, cb); err != nil {
		return nil, err
	}

	return s.persistence.TaskRepository().GetByID(ctx, cb.TaskID)
}

// DeploymentFailed records an external deployment failure and rolls back the
// responsible track.
func (s *Request) DeploymentFailed(ctx context.Context, id string, track models.Track, reason string) (*models.Request, error) {
	failed := events.DeploymentFailed{
		BaseEvent: events.NewBaseEvent(events.DeploymentFailedEvent, id),
		Track:     track,
		Reason:    reason,
	}
	s.publishBestEffort(ctx, id, failed)

	if _, err := s.engine.DeploymentFailed(ctx, id, track, reason); err != nil {
		return nil, err
	}

	return s.persistence.RequestRepository().GetByID(ctx, id)
}

// FrameworkInfo describes one registered compliance framework.
type FrameworkInfo struct {
	Name  string   `json:"name"`
	Rules []string `json:"rules"`
}

// Frameworks lists the registered compliance frameworks and their rules.
func (s *Request) Frameworks() []FrameworkInfo {
	names := s.registry.Names()
	infos := make([]FrameworkInfo, 0, len(names))

	for _, name := range names {
		fw, err := s.registry.Get(name)
		if err != nil {
			continue
		}

		rules := make([]string, 0, len(fw.Rules))
		for _, rule := range fw.Rules {
			rules = append(rules, rule.Name)
		}

		infos = append(infos, FrameworkInfo{Name: name, Rules: rules})
	}

	return infos
}

func (s *Request) audit(ctx context.Context, entry *models.AuditEntry) {
	if err := s.persistence.AuditRepository().Append(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "Failed to append audit entry",
			"action", entry.Action, "entity_id", entry.EntityID, "error", err)
	}
}

func (s *Request) publishBestEffort(ctx context.Context, requestID string, event eventbus.Event) {
	if err := s.publisher.Publish(ctx, requestID, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "request_id", requestID, "error", err)
	}
}

func (s *Request) notifyBestEffort(ctx context.Context, n *notify.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.ErrorContext(ctx, "Failed to deliver notification",
			"kind", n.Kind, "request_id", n.RequestID, "error", err)
	}
}
