package postgresql

// migrations returns the schema migrations keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS requests (
				id UUID PRIMARY KEY,
				business_line TEXT NOT NULL,
				application_type TEXT NOT NULL,
				purpose TEXT NOT NULL,
				technical_requirements JSONB NOT NULL DEFAULT '{}',
				compliance_requirements JSONB NOT NULL DEFAULT '{}',
				sla_requirements JSONB NOT NULL DEFAULT '{}',
				data_classification TEXT NOT NULL,
				priority TEXT NOT NULL,
				frameworks JSONB NOT NULL DEFAULT '[]',
				integration_count INTEGER NOT NULL DEFAULT 0,
				expected_users INTEGER NOT NULL DEFAULT 0,
				estimated_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
				external_exposure BOOLEAN NOT NULL DEFAULT FALSE,
				target_date TIMESTAMP WITH TIME ZONE,
				status TEXT NOT NULL,
				risk_score DOUBLE PRECISION NOT NULL DEFAULT 0
					CHECK (risk_score >= 0 AND risk_score <= 1),
				pending_sign_offs JSONB NOT NULL DEFAULT '[]',
				revision INTEGER NOT NULL DEFAULT 0,
				requester TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				approved_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);

			CREATE TABLE IF NOT EXISTS compliance_results (
				id UUID PRIMARY KEY,
				request_id UUID NOT NULL REFERENCES requests(id),
				framework TEXT NOT NULL,
				status TEXT NOT NULL,
				violations JSONB NOT NULL DEFAULT '[]',
				recommendations JSONB NOT NULL DEFAULT '[]',
				risk_contribution DOUBLE PRECISION NOT NULL DEFAULT 0,
				checked_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_compliance_results_request
				ON compliance_results(request_id, framework, checked_at DESC);

			CREATE TABLE IF NOT EXISTS workflow_tasks (
				id UUID PRIMARY KEY,
				request_id UUID NOT NULL REFERENCES requests(id),
				track TEXT NOT NULL,
				name TEXT NOT NULL,
				status TEXT NOT NULL,
				depends_on JSONB NOT NULL DEFAULT '[]',
				estimated_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
				actual_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
				assignee TEXT,
				comments JSONB NOT NULL DEFAULT '[]',
				retry_count INTEGER NOT NULL DEFAULT 0,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workflow_tasks_request ON workflow_tasks(request_id);

			CREATE TABLE IF NOT EXISTS audit_entries (
				id UUID PRIMARY KEY,
				actor TEXT NOT NULL,
				action TEXT NOT NULL,
				entity_type TEXT NOT NULL,
				entity_id TEXT NOT NULL,
				before JSONB,
				after JSONB,
				timestamp TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_audit_entries_entity
				ON audit_entries(entity_type, entity_id, timestamp);
		`,
	}
}
