// internal/status/constants.go
package status

// Health codes reported per sampler.
// These values are exposed on the API and MUST NOT be renumbered.

// ---- HEALTH CODES ----

// HealthUnknown: the sampler has never been started.
const HealthUnknown Health = 0

// HealthOK: sampling, last read succeeded.
const HealthOK Health = 1

// HealthError: faulted after exhausting the retry budget.
const HealthError Health = 2

// HealthStale: sampling, but the last read failed and is being retried.
const HealthStale Health = 3

// HealthDisabled: stopped by request.
const HealthDisabled Health = 4
