package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inodb/vibe-pave/internal/impact"
)

// Configuration keys.
const (
	keyPromoterGenes       = "promoter.genes"
	keyPromoterMaxDistance = "promoter.max_distance"
	keyUpstreamDistance    = "upstream.distance"
	keySpliceRegionExon    = "splice.region_exon"
	keySpliceRegionIntron  = "splice.region_intron"
	keyRealignMaxShift     = "realign.max_shift"
	keyWorkers             = "workers"
	keyReferenceFasta      = "reference.fasta"
	keyGenesPath           = "genes.path"
	keyOutputFormat        = "output.format"
	keyOutputMinEffect     = "output.min_effect"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyPromoterGenes, []string{})
	v.SetDefault(keyPromoterMaxDistance, impact.DefaultMaxPromoterDistance)
	v.SetDefault(keyUpstreamDistance, impact.DefaultUpstreamDistance)
	v.SetDefault(keySpliceRegionExon, impact.DefaultSpliceRegionExon)
	v.SetDefault(keySpliceRegionIntron, impact.DefaultSpliceRegionIntron)
	v.SetDefault(keyRealignMaxShift, impact.DefaultMaxRealignShift)
	v.SetDefault(keyWorkers, 0)
	v.SetDefault(keyOutputFormat, "tab")
	v.SetDefault(keyOutputMinEffect, "")
	v.SetDefault("log.level", "warn")
}

// classifierOptions maps configuration onto classification options.
func classifierOptions(v *viper.Viper) (impact.Options, error) {
	opts := impact.Options{
		PromoterGenes:       impact.NewPromoterSet(splitList(v.GetStringSlice(keyPromoterGenes))...),
		MaxPromoterDistance: v.GetInt(keyPromoterMaxDistance),
		UpstreamDistance:    v.GetInt(keyUpstreamDistance),
		SpliceRegionExon:    v.GetInt(keySpliceRegionExon),
		SpliceRegionIntron:  v.GetInt(keySpliceRegionIntron),
		MaxRealignShift:     v.GetInt(keyRealignMaxShift),
	}
	for key, n := range map[string]int{
		keyPromoterMaxDistance: opts.MaxPromoterDistance,
		keyUpstreamDistance:    opts.UpstreamDistance,
		keySpliceRegionExon:    opts.SpliceRegionExon,
		keySpliceRegionIntron:  opts.SpliceRegionIntron,
		keyRealignMaxShift:     opts.MaxRealignShift,
	} {
		if n < 0 {
			return impact.Options{}, fmt.Errorf("%s must not be negative, got %d", key, n)
		}
	}
	return opts, nil
}

// splitList accepts both YAML lists and comma-separated values from env or flags.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-pave configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/" + configName + ".yaml.",
		Example: `  vibe-pave config                                  # show all config
  vibe-pave config set promoter.genes TERT,MYC      # report promoter variants of these genes
  vibe-pave config get upstream.distance            # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout(), viper.GetViper())
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd.OutOrStdout(), viper.GetViper(), args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd.OutOrStdout(), viper.GetViper(), args[0])
		},
	}
}

func runConfigShow(w io.Writer, v *viper.Viper) error {
	settings := v.AllSettings()
	if len(settings) == 0 {
		fmt.Fprintf(w, "# No configuration set. Config file: ~/%s.yaml\n", configName)
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_, err = w.Write(out)
	return err
}

func runConfigSet(w io.Writer, v *viper.Viper, key, value string) error {
	switch {
	case key == keyPromoterGenes:
		v.Set(key, splitList([]string{value}))
	case value == "true" || value == "yes" || value == "on":
		v.Set(key, true)
	case value == "false" || value == "no" || value == "off":
		v.Set(key, false)
	default:
		if n, err := strconv.Atoi(value); err == nil {
			v.Set(key, n)
		} else {
			v.Set(key, value)
		}
	}

	path := v.ConfigFileUsed()
	if path == "" {
		var err error
		if path, err = defaultConfigPath(); err != nil {
			return err
		}
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(w, "Set %s = %s in %s\n", key, value, path)
	return nil
}

func runConfigGet(w io.Writer, v *viper.Viper, key string) error {
	val := v.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(w, val)
	return nil
}
