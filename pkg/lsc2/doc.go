// Package lsc2 builds localized sigma coordinate (LSC2) vertical grids.
//
// An LSC2 grid gives every horizontal mesh node its own number of vertical
// layers and its own layer boundaries. Generation runs in three stages:
//
//  1. [Estimate] picks an initial layer count per node from its water depth
//     using a canonical stretched reference profile.
//  2. The tabu subpackage adjusts those counts so that neighbouring nodes of
//     similar depth do not differ abruptly.
//  3. [Builder.Build] synthesizes the sigma coordinate of every level,
//     blending a diffusion-smoothed near-bed profile with an analytic
//     S-coordinate profile near the surface.
//
// # Conventions
//
// Bed depth h is positive downward and the reference water level eta is
// positive upward, so the total depth of node i is eta[i]+h[i]. Sigma runs
// from 0 at the surface (level 0) to -1 at the bed (level nlevel-1), and
// z = eta + depth*sigma.
//
// # Parameters
//
// Every tunable constant (reference table size, shallow cutoff, blend
// thresholds, ratio window) lives in a parameter struct with a Default
// constructor. Nothing in this package reads global state.
package lsc2
