// Package monitor records per-step wavefield statistics during a run and
// turns them into trend plots (PNG) and an HTML report.
package monitor
