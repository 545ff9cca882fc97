package config

import "mercator-hq/quota/pkg/quota"

// EngineConfig converts the quota section into an engine configuration.
func (c *QuotaConfig) EngineConfig() (quota.Config, error) {
	limits, err := quota.LimitsFromMap(c.Limits)
	if err != nil {
		return quota.Config{}, err
	}
	return quota.Config{
		Limits:        limits,
		IPAddrMethods: append([]string(nil), c.IPAddrMethods...),
		Whitelist:     append([]string(nil), c.Whitelist...),
	}, nil
}
