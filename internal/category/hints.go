// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package category

// Hints describes the default categories for prompts. Categories not
// listed here are offered to the model by name only.
var Hints = map[string]string{
	"Materials Design & Synthesis":     "molecular design strategies such as donor-acceptor structures and side-chain engineering, synthesis routes, structural modifications, new building blocks",
	"Performance Metrics":              "PCE, VOC, JSC, FF, EQE/IQE, carrier mobility, conductivity, luminescence efficiency, color coordinates, with the reported numbers",
	"Structure-Property Relationships": "how molecular structure drives device behavior, HOMO/LUMO and bandgap engineering, morphology-performance links",
	"Device Architecture & Physics":    "conventional, inverted and tandem structures, charge generation and transport, energy level alignment, interface engineering",
	"Processing & Fabrication":         "solvents and processing conditions, thermal or solvent annealing, film deposition, large-area fabrication",
	"Characterization Methods":         "GIWAXS, AFM, TEM, UV-vis, PL, EL and electrical measurements",
	"Stability & Degradation":          "thermal stability, photostability, operational lifetime, degradation mechanisms, encapsulation",
	"Computational & Machine Learning": "DFT and molecular simulation, machine learning for materials discovery, computational screening",
}

// Entry is a category with its prompt hint and 1-based position.
type Entry struct {
	Number int
	Name   string
	Hint   string
}

// Entries pairs each category with its hint, in order.
func Entries(categories []string) []Entry {
	out := make([]Entry, len(categories))
	for i, c := range categories {
		out[i] = Entry{Number: i + 1, Name: c, Hint: Hints[c]}
	}
	return out
}
