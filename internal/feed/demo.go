package feed

import (
	"sort"
	"time"

	"github.com/helixir/scienceswipe/internal/domain"
)

// demoPapers is the fixed fallback dataset served when a source is
// unreachable or empty.
var demoPapers = []domain.Paper{
	{
		ID:          domain.DemoIDPrefix + "1",
		DOI:         domain.DemoIDPrefix + "1",
		TitleOrg:    "Quantum Coherence in Photosynthetic Light Harvesting at Room Temperature",
		AbstractOrg: "We report long-lived electronic coherence in light-harvesting complexes measured with two-dimensional electronic spectroscopy under physiological conditions.",
		AIHeadline:  "Plants Use Quantum Tricks to Capture Sunlight",
		AIKeyTakeaways: []domain.Takeaway{
			{Kind: domain.TakeawayText, Text: "Energy moves through the complex along several paths at once."},
			{Kind: domain.TakeawayText, Text: "The coherence survives for hundreds of femtoseconds at room temperature."},
			{Kind: domain.TakeawayWhyItMatters, Text: "Copying the trick could make solar cells far more efficient."},
		},
		AISummaryDone: true,
		Category:      []string{"physics.bio-ph", "quant-ph"},
		Creator:       []string{"A. Rivera", "M. Chen"},
		CreatedAt:     time.Date(2023, 11, 15, 0, 0, 0, 0, time.UTC),
	},
	{
		ID:          domain.DemoIDPrefix + "2",
		DOI:         domain.DemoIDPrefix + "2",
		TitleOrg:    "Gut Microbiome Composition Predicts Response to Immunotherapy",
		AbstractOrg: "Across three cohorts, baseline microbial diversity was associated with improved response to checkpoint inhibitors in melanoma patients.",
		AIHeadline:  "Your Gut Bacteria May Decide If Cancer Treatment Works",
		AIKeyTakeaways: []domain.Takeaway{
			{
				Kind:  domain.TakeawayStructured,
				Title: "Key findings",
				Insights: []domain.Insight{
					{Name: "Diversity", Text: "Patients with richer microbiomes responded more often."},
					{Name: "Species", Text: "Two bacterial families were enriched in responders."},
				},
			},
			{Kind: domain.TakeawayWhyItMatters, Text: "A stool test could help pick the right therapy."},
		},
		AISummaryDone: true,
		Category:      []string{"q-bio.GN"},
		Creator:       []string{"S. Okafor"},
		CreatedAt:     time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
	},
	{
		ID:          domain.DemoIDPrefix + "3",
		DOI:         domain.DemoIDPrefix + "3",
		TitleOrg:    "Self-Healing Concrete Using Encapsulated Bacterial Spores",
		AbstractOrg: "Bacterial spores embedded in concrete germinate when cracks admit water and precipitate calcium carbonate that seals the gap.",
		AIHeadline:  "Concrete That Repairs Its Own Cracks",
		AIKeyTakeaways: []domain.Takeaway{
			{Kind: domain.TakeawayText, Text: "Cracks up to 0.8 mm closed within four weeks."},
			{Kind: domain.TakeawayText, Text: "Spores stayed viable inside the material for years."},
			{Kind: domain.TakeawayWhyItMatters, Text: "Bridges and tunnels could last decades longer."},
		},
		AISummaryDone: true,
		Category:      []string{"cond-mat.mtrl-sci"},
		Creator:       []string{"L. Jansen", "P. Kowalski", "R. Iyer"},
		CreatedAt:     time.Date(2023, 12, 10, 0, 0, 0, 0, time.UTC),
	},
}

// DemoPapers returns the demo dataset tagged with source, filtered to finished
// summaries and sorted newest first. The returned slice is a fresh copy.
func DemoPapers(source domain.Source) []domain.Paper {
	out := make([]domain.Paper, 0, len(demoPapers))
	for _, p := range demoPapers {
		if !p.AISummaryDone {
			continue
		}
		p.Source = source
		p.AIKeyTakeaways = append([]domain.Takeaway(nil), p.AIKeyTakeaways...)
		p.Category = append([]string(nil), p.Category...)
		p.Creator = append([]string(nil), p.Creator...)
		out = append(out, p)
	}
	sortNewest(out)
	return out
}

// DemoPaper returns the demo paper with the given id.
func DemoPaper(source domain.Source, id string) (domain.Paper, bool) {
	for _, p := range DemoPapers(source) {
		if p.ID == id || p.DOI == id {
			return p, true
		}
	}
	return domain.Paper{}, false
}

func sortNewest(papers []domain.Paper) {
	sort.SliceStable(papers, func(i, j int) bool {
		return papers[i].CreatedAt.After(papers[j].CreatedAt)
	})
}
