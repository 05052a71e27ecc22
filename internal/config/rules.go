package config

// RulesFor returns every rule keyed on whenColumn within table, in
// declaration order.
func (c *Config) RulesFor(table, whenColumn string) []*Rule {
	var out []*Rule
	for _, r := range c.Rules {
		if r.Table == table && r.WhenColumn == whenColumn {
			out = append(out, r)
		}
	}
	return out
}
