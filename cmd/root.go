package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/smarkets/smkstream/internal/options"
	"github.com/smarkets/smkstream/pkg/smklog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	opts    = options.New()
	rootCmd = &cobra.Command{
		Use:   "smk",
		Short: "smk, a client for the Smarkets streaming API.",
		Long:  `smk connects to the Smarkets streaming API, logs in and streams messages from the venue.`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	rootCmd.PersistentFlags().String("mode", "debug", "mode")
	rootCmd.PersistentFlags().String("host", "", "api host")
	rootCmd.PersistentFlags().Int("port", 0, "api port")
	rootCmd.PersistentFlags().String("username", "", "login username")

	rootCmd.AddCommand(newStreamCMD().CMD())
	rootCmd.AddCommand(newVersionCMD().CMD())
}

func initConfig() {
	vp := viper.New()
	if cfgFile != "" {
		vp.SetConfigFile(cfgFile)
		if err := vp.ReadInConfig(); err == nil {
			fmt.Println("Using config file:", vp.ConfigFileUsed())
		}
	}

	vp.SetEnvPrefix("smk")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()
	_ = vp.BindPFlags(rootCmd.PersistentFlags())
	opts.ConfigureWithViper(vp)
}

func configureLog() {
	logOpts := smklog.NewOptions()
	logOpts.Level = opts.Logger.Level
	logOpts.LogDir = opts.Logger.Dir
	logOpts.LineNum = opts.Logger.LineNum
	logOpts.WireOn = opts.Logger.WireOn
	smklog.Configure(logOpts)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
