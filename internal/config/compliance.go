package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	EnvComplianceBlocksPerBatch      = "KLAUSEL_COMPLIANCE_BLOCKS_PER_BATCH"
	EnvComplianceMaxParallelIdentify = "KLAUSEL_COMPLIANCE_MAX_PARALLEL_IDENTIFY"
	EnvComplianceMaxParallelDeep     = "KLAUSEL_COMPLIANCE_MAX_PARALLEL_DEEP"
	EnvComplianceArticleBatchBudget  = "KLAUSEL_COMPLIANCE_ARTICLE_BATCH_BUDGET"
	EnvComplianceLegalContextBudget  = "KLAUSEL_COMPLIANCE_LEGAL_CONTEXT_BUDGET"
	EnvComplianceBlockTextBudget     = "KLAUSEL_COMPLIANCE_BLOCK_TEXT_BUDGET"
	EnvComplianceSources             = "KLAUSEL_COMPLIANCE_SOURCES"
)

// ComplianceConfig tunes the compliance pipeline: batch sizing for the
// identification phase, token budgets for article context assembly, and
// the set of enabled legal corpora.
type ComplianceConfig struct {
	BlocksPerBatch      int      `toml:"blocks_per_batch"`
	MaxParallelIdentify int      `toml:"max_parallel_identify"`
	MaxParallelDeep     int      `toml:"max_parallel_deep"`
	ArticleBatchBudget  int      `toml:"article_batch_budget"`
	LegalContextBudget  int      `toml:"legal_context_budget"`
	BlockTextBudget     int      `toml:"block_text_budget"`
	Sources             []string `toml:"sources"`
}

func (c *ComplianceConfig) Merge(overlay *ComplianceConfig) {
	if overlay.BlocksPerBatch != 0 {
		c.BlocksPerBatch = overlay.BlocksPerBatch
	}
	if overlay.MaxParallelIdentify != 0 {
		c.MaxParallelIdentify = overlay.MaxParallelIdentify
	}
	if overlay.MaxParallelDeep != 0 {
		c.MaxParallelDeep = overlay.MaxParallelDeep
	}
	if overlay.ArticleBatchBudget != 0 {
		c.ArticleBatchBudget = overlay.ArticleBatchBudget
	}
	if overlay.LegalContextBudget != 0 {
		c.LegalContextBudget = overlay.LegalContextBudget
	}
	if overlay.BlockTextBudget != 0 {
		c.BlockTextBudget = overlay.BlockTextBudget
	}
	if len(overlay.Sources) > 0 {
		c.Sources = overlay.Sources
	}
}

func (c *ComplianceConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

func (c *ComplianceConfig) loadDefaults() {
	if c.BlocksPerBatch == 0 {
		c.BlocksPerBatch = 5
	}
	if c.MaxParallelIdentify == 0 {
		c.MaxParallelIdentify = 4
	}
	if c.MaxParallelDeep == 0 {
		c.MaxParallelDeep = 4
	}
	if c.ArticleBatchBudget == 0 {
		c.ArticleBatchBudget = 200000
	}
	if c.LegalContextBudget == 0 {
		c.LegalContextBudget = 160000
	}
	if c.BlockTextBudget == 0 {
		c.BlockTextBudget = 40000
	}
	if len(c.Sources) == 0 {
		c.Sources = []string{"BGB", "HGB"}
	}
}

func (c *ComplianceConfig) loadEnv() {
	setInt := func(envVar string, target *int) {
		if v := os.Getenv(envVar); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*target = n
			}
		}
	}

	setInt(EnvComplianceBlocksPerBatch, &c.BlocksPerBatch)
	setInt(EnvComplianceMaxParallelIdentify, &c.MaxParallelIdentify)
	setInt(EnvComplianceMaxParallelDeep, &c.MaxParallelDeep)
	setInt(EnvComplianceArticleBatchBudget, &c.ArticleBatchBudget)
	setInt(EnvComplianceLegalContextBudget, &c.LegalContextBudget)
	setInt(EnvComplianceBlockTextBudget, &c.BlockTextBudget)

	if v := os.Getenv(EnvComplianceSources); v != "" {
		parts := strings.Split(v, ",")
		sources := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				sources = append(sources, trimmed)
			}
		}
		c.Sources = sources
	}
}

func (c *ComplianceConfig) validate() error {
	for name, value := range map[string]int{
		"blocks_per_batch":      c.BlocksPerBatch,
		"max_parallel_identify": c.MaxParallelIdentify,
		"max_parallel_deep":     c.MaxParallelDeep,
		"article_batch_budget":  c.ArticleBatchBudget,
		"legal_context_budget":  c.LegalContextBudget,
		"block_text_budget":     c.BlockTextBudget,
	} {
		if value < 1 {
			return fmt.Errorf("%s must be positive: %d", name, value)
		}
	}
	return nil
}
