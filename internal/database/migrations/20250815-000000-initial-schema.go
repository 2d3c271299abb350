package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250815-000000",
		Description: "Initial schema",
		Up: []string{
			// Credit accounts - one row per user, created lazily on
			// first balance query. user_id is a Supabase user UUID
			// (no FK constraint since users live in Supabase).
			// available_credits is always derived as total - used.
			`CREATE TABLE IF NOT EXISTS user_credits (
				user_id TEXT PRIMARY KEY,
				total_credits INTEGER NOT NULL DEFAULT 0,
				used_credits INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				CHECK (total_credits >= 0),
				CHECK (used_credits >= 0),
				CHECK (used_credits <= total_credits)
			)`,

			// Credit transactions - append-only audit log. Amounts are
			// positive magnitudes; type carries the direction.
			// provider_event_id is UNIQUE so webhook redelivery cannot
			// double-grant.
			`CREATE TABLE IF NOT EXISTS credit_transactions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				type TEXT NOT NULL,
				amount INTEGER NOT NULL,
				balance_after INTEGER NOT NULL,
				provider_event_id TEXT UNIQUE,
				description TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				CHECK (amount > 0),
				CHECK (type IN ('usage', 'purchase'))
			)`,
			`CREATE INDEX IF NOT EXISTS idx_credit_transactions_user_id ON credit_transactions(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_credit_transactions_created_at ON credit_transactions(created_at)`,

			// Subscriptions - one row per user, upserted from payment
			// provider webhooks.
			`CREATE TABLE IF NOT EXISTS user_subscriptions (
				user_id TEXT PRIMARY KEY,
				plan_id TEXT NOT NULL,
				status TEXT NOT NULL,
				interval TEXT NOT NULL DEFAULT '',
				amount INTEGER NOT NULL DEFAULT 0,
				currency TEXT NOT NULL DEFAULT '',
				customer_email TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				CHECK (status IN ('active', 'canceled', 'expired'))
			)`,
			`CREATE INDEX IF NOT EXISTS idx_user_subscriptions_status ON user_subscriptions(status)`,

			// Webhook events - processed provider event ids for
			// idempotent webhook handling.
			`CREATE TABLE IF NOT EXISTS webhook_events (
				id TEXT PRIMARY KEY,
				type TEXT NOT NULL,
				processed_at TEXT NOT NULL
			)`,
		},
	})
}
