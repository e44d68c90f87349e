package checkpoint

import (
	"fmt"
	"sort"
	"strings"
)

// MatchTargetModules maps each low-rank-adaptation target module to the 2-D
// weight tensors it selects. A module that matches nothing is an error: the
// injector downstream would silently train no parameters for it.
func (c *Checkpoint) MatchTargetModules(modules []string) (map[string][]string, error) {
	matched := make(map[string][]string, len(modules))
	var missing []string
	for _, mod := range modules {
		var hits []string
		needle := "." + mod + "."
		for name, info := range c.Tensors {
			if len(info.Shape) != 2 {
				continue
			}
			if strings.Contains(name, needle) && strings.HasSuffix(name, ".weight") {
				hits = append(hits, name)
			}
		}
		if len(hits) == 0 {
			missing = append(missing, mod)
			continue
		}
		sort.Strings(hits)
		matched[mod] = hits
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("checkpoint: target modules not found in %s: %s",
			c.Config.Arch(), strings.Join(missing, ", "))
	}
	return matched, nil
}

// LoRATrainableParams estimates the trainable parameter count of a low-rank
// adaptation over the matched modules: rank*(rows+cols) per selected weight.
func (c *Checkpoint) LoRATrainableParams(modules []string, rank int) (int64, error) {
	matched, err := c.MatchTargetModules(modules)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, names := range matched {
		for _, name := range names {
			shape := c.Tensors[name].Shape
			total += int64(rank) * int64(shape[0]+shape[1])
		}
	}
	return total, nil
}
