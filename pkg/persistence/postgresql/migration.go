package postgresql

// migrations returns the ordered schema migrations for the engine's tables.
// Flows are stored one row per (id, version) so published versions stay
// immutable; conversation and window state share a single row keyed by
// (organization_id, contact_id).
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS flows (
				id UUID NOT NULL,
				version INTEGER NOT NULL,
				organization_id TEXT NOT NULL,
				name TEXT NOT NULL,
				status TEXT NOT NULL,
				trigger_config JSONB NOT NULL DEFAULT '{}',
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				published_at TIMESTAMP WITH TIME ZONE,
				deleted_at TIMESTAMP WITH TIME ZONE,
				PRIMARY KEY (id, version)
			);

			CREATE INDEX IF NOT EXISTS idx_flows_organization
				ON flows (organization_id)
				WHERE deleted_at IS NULL;

			CREATE INDEX IF NOT EXISTS idx_flows_published
				ON flows (organization_id, created_at)
				WHERE status = 'published' AND deleted_at IS NULL;
		`,
		2: `
			CREATE TABLE IF NOT EXISTS conversations (
				organization_id TEXT NOT NULL,
				contact_id TEXT NOT NULL,
				active_flow_id UUID,
				active_flow_version INTEGER,
				current_node_id TEXT,
				bindings JSONB NOT NULL DEFAULT '{}',
				generation BIGINT NOT NULL DEFAULT 0,
				suspended_since TIMESTAMP WITH TIME ZONE,
				delay_until TIMESTAMP WITH TIME ZONE,
				prompt_attempts INTEGER NOT NULL DEFAULT 0,
				faulted BOOLEAN NOT NULL DEFAULT FALSE,
				fault_reason TEXT,
				blocked JSONB NOT NULL DEFAULT '[]',
				window_expires_at TIMESTAMP WITH TIME ZONE,
				last_inbound_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (organization_id, contact_id)
			);

			CREATE INDEX IF NOT EXISTS idx_conversations_delay_due
				ON conversations (delay_until)
				WHERE delay_until IS NOT NULL;
		`,
	}
}
