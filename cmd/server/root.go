package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "imagenet-api",
	Short: "ImageNet classification service",
	Long:  "Serves top-k ImageNet predictions for uploaded images using a pretrained network with 10-crop oversampling",

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		return viper.BindPFlags(cmd.PersistentFlags())
	},
}

func init() {
	pflags := rootCmd.PersistentFlags()
	pflags.String("weights-path", "", "Path to the ONNX weights file")
	pflags.String("meta-path", "", "Path to the metadata file (labels, mean image, flip flag)")
	pflags.String("environment", "", "Runtime environment: dev, test or prod")
	pflags.StringVar(&envFile, "env-file", "", "Path to an env file to load")

	viper.BindPFlag("weights_path", pflags.Lookup("weights-path"))
	viper.BindPFlag("meta_path", pflags.Lookup("meta-path"))
	viper.BindPFlag("environment", pflags.Lookup("environment"))

	rootCmd.AddCommand(serveCmd, classifyCmd)
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}
