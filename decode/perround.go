package decode

import (
	"github.com/c360studio/codebook/codebook"
	"github.com/c360studio/codebook/trace"
)

// PerRoundMax decodes by taking the brightest channel in every round and
// matching the resulting codeword exactly.
type PerRoundMax struct {
	targets map[string]string
}

// NewPerRoundMax indexes cb by the brightest channel of every codeword round,
// so weighted codewords match on their dominant channel. When several
// mappings reduce to the same key the first one wins.
func NewPerRoundMax(cb *codebook.Codebook) *PerRoundMax {
	targets := make(map[string]string, len(cb.Mappings))
	for _, m := range cb.Mappings {
		key := codebook.Key(codebook.RoundMax(m.Codeword))
		if _, ok := targets[key]; !ok {
			targets[key] = m.Target
		}
	}
	return &PerRoundMax{targets: targets}
}

// Decode implements Decoder.
func (d *PerRoundMax) Decode(table *trace.IntensityTable) ([]Result, error) {
	results := make([]Result, len(table.Features))
	for i := range table.Features {
		f := &table.Features[i]

		var cw codebook.Codeword
		for ri, row := range f.Values {
			best, bestVal := -1, 0.0
			for ci, v := range row {
				if v > bestVal {
					best, bestVal = ci, v
				}
			}
			if best < 0 {
				continue
			}
			cw = append(cw, codebook.Entry{
				Round:   table.Rounds[ri],
				Channel: table.Channels[best],
				Value:   1,
			})
		}

		target, ok := d.targets[codebook.Key(cw)]
		results[i] = Result{
			Feature:          i,
			Target:           target,
			Decoded:          ok && len(cw) > 0,
			Intensity:        f.Norm(),
			PassesThresholds: f.PassesFilter,
		}
		if !results[i].Decoded {
			results[i].Target = ""
		}
	}
	return results, nil
}
