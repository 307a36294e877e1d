/*
Package report classifies application errors, traces them as error spans,
and drives notification and retry policy.

# Classification

A raw error is mapped to a kind (network, authentication, authorization,
validation, server, client, unknown) by message heuristics, the kind to a
severity, and the kind to retryability: network and server errors are worth
retrying, validation and auth errors are not. An unrecognized error shape
falls back to unknown/medium/non-retryable; classification never fails and
never panics.

# Side effects by severity

  - low: silent (debug log only)
  - medium: reported
  - high: user-facing warning plus report
  - critical: user-facing blocking notice plus report; server-classified
    critical errors may additionally force a restart after a grace period

User-facing notifications go through the Notifier interface and are
throttled, so an error storm cannot flood the user.

# Retries

A retryable error's recovery operation is rescheduled with exponential
backoff (base delay doubled per attempt) up to the configured maximum. Each
error ID owns at most one pending timer, tracked in a side map, so duplicate
scheduling for the same error cannot occur.
*/
package report
