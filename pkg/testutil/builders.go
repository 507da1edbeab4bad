// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/clearway/clearway/pkg/models"
)

// CreateTestRequest creates a request with sane defaults that can be overridden.
func CreateTestRequest(overrides ...func(*models.Request)) *models.Request {
	now := time.Now().UTC()

	request := &models.Request{
		ID:                     uuid.New().String(),
		BusinessLine:           "payments",
		ApplicationType:        "internal-service",
		Purpose:                "test onboarding",
		TechnicalRequirements:  map[string]any{},
		ComplianceRequirements: map[string]any{},
		SLARequirements:        map[string]any{},
		DataClassification:     models.ClassificationInternal,
		Priority:               models.PriorityMedium,
		IntegrationCount:       1,
		ExpectedUsers:          100,
		EstimatedCost:          10_000,
		Status:                 models.RequestStatusSubmitted,
		Requester:              "test@example.com",
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	for _, override := range overrides {
		override(request)
	}

	return request
}

// WithClassification sets the data classification.
func WithClassification(c models.DataClassification) func(*models.Request) {
	return func(r *models.Request) {
		r.DataClassification = c
	}
}

// WithFrameworks sets the regulatory frameworks.
func WithFrameworks(frameworks ...string) func(*models.Request) {
	return func(r *models.Request) {
		r.Frameworks = frameworks
	}
}

// WithCost sets the estimated cost.
func WithCost(cost float64) func(*models.Request) {
	return func(r *models.Request) {
		r.EstimatedCost = cost
	}
}

// WithStatus sets the request status.
func WithStatus(status models.RequestStatus) func(*models.Request) {
	return func(r *models.Request) {
		r.Status = status
	}
}

// WithPriority sets the request priority.
func WithPriority(priority models.Priority) func(*models.Request) {
	return func(r *models.Request) {
		r.Priority = priority
	}
}

// WithExternalExposure marks the request as externally exposed.
func WithExternalExposure() func(*models.Request) {
	return func(r *models.Request) {
		r.ExternalExposure = true
	}
}

// WithComplianceField sets one compliance requirement field.
func WithComplianceField(key string, value any) func(*models.Request) {
	return func(r *models.Request) {
		if r.ComplianceRequirements == nil {
			r.ComplianceRequirements = map[string]any{}
		}

		r.ComplianceRequirements[key] = value
	}
}

// CreateTestTask creates a workflow task with defaults that can be overridden.
func CreateTestTask(requestID string, overrides ...func(*models.WorkflowTask)) *models.WorkflowTask {
	now := time.Now().UTC()

	task := &models.WorkflowTask{
		ID:             uuid.New().String(),
		RequestID:      requestID,
		Track:          models.TrackInfrastructure,
		Name:           "Provision environment",
		Status:         models.TaskStatusPending,
		EstimatedHours: 8,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for _, override := range overrides {
		override(task)
	}

	return task
}

// WithTrack sets the task track.
func WithTrack(track models.Track) func(*models.WorkflowTask) {
	return func(t *models.WorkflowTask) {
		t.Track = track
	}
}

// WithTaskStatus sets the task status.
func WithTaskStatus(status models.TaskStatus) func(*models.WorkflowTask) {
	return func(t *models.WorkflowTask) {
		t.Status = status
	}
}

// WithDependsOn sets the task dependencies.
func WithDependsOn(ids ...string) func(*models.WorkflowTask) {
	return func(t *models.WorkflowTask) {
		t.DependsOn = ids
	}
}

// WithTaskName sets the task name.
func WithTaskName(name string) func(*models.WorkflowTask) {
	return func(t *models.WorkflowTask) {
		t.Name = name
	}
}
