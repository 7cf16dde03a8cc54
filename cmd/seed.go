package cmd

import (
	"context"
	"log"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"wedlock-server/internal/logger"
	"wedlock-server/internal/profile"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Interactively create a profile in the store",
	Run: func(_ *cobra.Command, _ []string) {
		seed()
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func seed() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil || config.Mongo == nil || config.Mongo.URI == "" {
		logger.Fatal("mongo.uri is required")
	}

	store, err := newStore(ctx, config.Mongo)
	if err != nil {
		logger.Fatal("connecting to the profile store", zap.Error(err))
	}

	p, err := promptProfile()
	if err != nil {
		logger.Fatal("collecting profile input", zap.Error(err))
	}

	if err := store.Upsert(ctx, p); err != nil {
		logger.Fatal("saving profile", zap.Error(err))
	}

	logger.Info("profile created", zap.String("phone", p.Phone), zap.String("name", p.Name))
}

func promptProfile() (*profile.Profile, error) {
	phone, err := askRequired("Phone")
	if err != nil {
		return nil, err
	}

	name, err := askRequired("Name")
	if err != nil {
		return nil, err
	}

	genderPrompt := promptui.Select{
		Label: "Gender",
		Items: []string{profile.GenderMale, profile.GenderFemale},
	}
	_, gender, err := genderPrompt.Run()
	if err != nil {
		return nil, err
	}

	agePrompt := promptui.Prompt{
		Label: "Age",
		Validate: func(input string) error {
			_, err := strconv.Atoi(strings.TrimSpace(input))
			return err
		},
	}
	ageInput, err := agePrompt.Run()
	if err != nil {
		return nil, err
	}
	age, _ := strconv.Atoi(strings.TrimSpace(ageInput))

	job, err := askOptional("Job")
	if err != nil {
		return nil, err
	}
	religion, err := askOptional("Religion")
	if err != nil {
		return nil, err
	}
	income, err := askOptional("Income")
	if err != nil {
		return nil, err
	}

	return &profile.Profile{
		Phone:    phone,
		Name:     name,
		Gender:   gender,
		Age:      age,
		Job:      job,
		Religion: religion,
		Income:   income,
		Tier:     profile.TierFree,
	}, nil
}

func askRequired(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return promptui.ErrAbort
			}
			return nil
		},
	}
	value, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func askOptional(label string) (string, error) {
	prompt := promptui.Prompt{Label: label}
	value, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}
