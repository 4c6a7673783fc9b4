package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/plantrec/plantrec/internal/query"
	"github.com/plantrec/plantrec/internal/recommend"
)

var (
	recommendDataset  datasetFlags
	recommendCatalog  string
	recommendPrefs    string
	recommendSeed     uint64
	recommendPolicy   string
	recommendDiagnose bool
	prefsFlags        query.Preferences
	tempMinFlag       float64
	phMinFlag         float64
	phMaxFlag         float64
)

func init() {
	rootCmd.AddCommand(recommendCmd)

	f := recommendCmd.Flags()
	f.StringVar(&recommendDataset.source, "dataset", "", "Species table (.csv, .jsonl, .db or postgres:// DSN)")
	f.StringVar(&recommendDataset.table, "table", "", "SQL table name for database sources")
	f.StringVar(&recommendCatalog, "catalog", "", "YAML field catalog (default: built-in USDA PLANTS catalog)")
	f.StringVar(&recommendPrefs, "prefs", "", "Read preferences from a YAML or JSON file; flags override it")
	f.Uint64Var(&recommendSeed, "seed", 0, "Random seed for reproducible results (0 uses config or a fresh seed)")
	f.StringVar(&recommendPolicy, "scaling", "", "Scaling policy: joint or base")
	f.BoolVar(&recommendDiagnose, "diagnostics", false, "Report the silhouette score of the clustering")

	f.StringVar(&prefsFlags.Lifespan, "lifespan", "", "Short, Moderate or Long")
	f.StringVar(&prefsFlags.DroughtTolerance, "drought", "", "Drought tolerance: Low, Medium or High")
	f.StringVar(&prefsFlags.Moisture, "moisture", "", "Moisture use: Low, Medium or High")
	f.StringVar(&prefsFlags.HedgeTolerance, "hedge", "", "Hedge tolerance: Low, Medium or High")
	f.StringVar(&prefsFlags.ShadeTolerance, "shade", "", "Shade tolerance: Intolerant, Intermediate or Tolerant")
	f.StringVar(&prefsFlags.SalinityTolerance, "salinity", "", "Salinity tolerance: None, Low, Medium or High")
	f.StringVar(&prefsFlags.GrowthRate, "growth-rate", "", "Slow, Moderate or Rapid")
	f.Float64Var(&tempMinFlag, "temp-min", 0, "Minimum temperature tolerated (°F)")
	f.Float64Var(&phMinFlag, "ph-min", 0, "Minimum soil pH")
	f.Float64Var(&phMaxFlag, "ph-max", 0, "Maximum soil pH")
	f.StringVar(&prefsFlags.FlowerConspicuous, "flower-showy", "", "Conspicuous flowers: Yes or No")
	f.StringVar(&prefsFlags.FlowerColor, "flower-color", "", "Yellow, Red, Purple, Brown, Blue, Green, White or Orange")
	f.StringVar(&prefsFlags.FallConspicuous, "fall-showy", "", "Conspicuous fall foliage: Yes or No")
	f.StringVar(&prefsFlags.FireResistance, "fire-resistant", "", "Fire resistance: Yes or No")
	f.StringVar(&prefsFlags.FruitConspicuous, "fruit-showy", "", "Conspicuous fruit: Yes or No")
	f.IntVarP(&prefsFlags.Count, "count", "n", query.DefaultCount, "Number of recommendations (1-50)")
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend species matching a set of preferences",
	Long: `Recommend species matching a set of preferences.

Unset preferences are treated as "no preference". The result is a random
sample of the species that cluster together with the preferences.

Examples:
  plantrec recommend --dataset plants.csv --drought High --shade Tolerant
  plantrec recommend --prefs garden.yml --count 10 --seed 7 --human`,
	Args: cobra.NoArgs,
	RunE: runRecommend,
}

func runRecommend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	prefs, err := buildPreferences(cmd.Flags())
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}
	if err := prefs.Validate(); err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	pc := cfg.Pipeline()
	if recommendSeed != 0 {
		pc.Seed = recommendSeed
	}
	if recommendPolicy != "" {
		pc.ScalingPolicy = recommendPolicy
	}
	if recommendDiagnose {
		pc.Cluster.Diagnostics = true
	}

	cat := mustLoadCatalog(recommendCatalog)
	base := mustLoadDataset(ctx, recommendDataset)
	p := mustBuildPipeline(cat, base, pc)

	res, err := p.Run(ctx, prefs)
	if err != nil {
		code := exitCodeFor(err)
		if code == ExitNoMatches {
			if humanOutput {
				outputHuman("%s\n", recommend.UserMessage(err))
			} else {
				outputJSON(NoMatchesResponse{Recommendations: nil, Message: recommend.UserMessage(err)})
			}
			os.Exit(code)
		}
		exitWithError(code, "%s", recommend.UserMessage(err))
	}

	if humanOutput {
		printRecommendationsHuman(os.Stdout, res)
	} else {
		outputJSON(res)
	}
	return nil
}

// buildPreferences merges the --prefs file with any flags the user set.
func buildPreferences(flags *pflag.FlagSet) (query.Preferences, error) {
	prefs := query.Preferences{Count: query.DefaultCount}
	if recommendPrefs != "" {
		loaded, err := loadPreferences(recommendPrefs)
		if err != nil {
			return prefs, err
		}
		prefs = loaded
	}

	override := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	override("lifespan", &prefs.Lifespan, prefsFlags.Lifespan)
	override("drought", &prefs.DroughtTolerance, prefsFlags.DroughtTolerance)
	override("moisture", &prefs.Moisture, prefsFlags.Moisture)
	override("hedge", &prefs.HedgeTolerance, prefsFlags.HedgeTolerance)
	override("shade", &prefs.ShadeTolerance, prefsFlags.ShadeTolerance)
	override("salinity", &prefs.SalinityTolerance, prefsFlags.SalinityTolerance)
	override("growth-rate", &prefs.GrowthRate, prefsFlags.GrowthRate)
	override("flower-showy", &prefs.FlowerConspicuous, prefsFlags.FlowerConspicuous)
	override("flower-color", &prefs.FlowerColor, prefsFlags.FlowerColor)
	override("fall-showy", &prefs.FallConspicuous, prefsFlags.FallConspicuous)
	override("fire-resistant", &prefs.FireResistance, prefsFlags.FireResistance)
	override("fruit-showy", &prefs.FruitConspicuous, prefsFlags.FruitConspicuous)

	if flags.Changed("temp-min") {
		v := tempMinFlag
		prefs.TemperatureMinimumF = &v
	}
	if flags.Changed("ph-min") {
		v := phMinFlag
		prefs.PHMinimum = &v
	}
	if flags.Changed("ph-max") {
		v := phMaxFlag
		prefs.PHMaximum = &v
	}
	if flags.Changed("count") {
		prefs.Count = prefsFlags.Count
	}

	return prefs, nil
}

// loadPreferences reads preferences from a .json, .yml or .yaml file. A
// missing count defaults to query.DefaultCount.
func loadPreferences(path string) (query.Preferences, error) {
	prefs := query.Preferences{Count: query.DefaultCount}

	data, err := os.ReadFile(path)
	if err != nil {
		return prefs, fmt.Errorf("reading preferences: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &prefs)
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, &prefs)
	default:
		return prefs, fmt.Errorf("preferences file must be .json, .yml or .yaml: %s", path)
	}
	if err != nil {
		return prefs, fmt.Errorf("parsing preferences: %w", err)
	}
	return prefs, nil
}
