// Package layout assigns canvas positions to workflow nodes using a
// layered longest-path algorithm. Back-edges are excluded from layering
// so cyclic graphs still lay out cleanly, and a coalescing Scheduler
// offloads computation from interactive callers.
package layout
