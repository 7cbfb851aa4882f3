// Package flags manages command-line flags and environment variables for
// the portainerctl CLI configuration.
package flags

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nicholas-fedor/portainerctl/pkg/client"
)

// defaultPort is the HTTPS port Portainer listens on out of the box.
const defaultPort = 9443

// errInvalidLogFormat indicates an invalid log format was specified.
var errInvalidLogFormat = errors.New("invalid log format specified")

// errInvalidLogLevel indicates an invalid log level was specified.
var errInvalidLogLevel = errors.New("invalid log level specified")

// errFlagRead indicates a flag value could not be retrieved.
var errFlagRead = errors.New("failed to read flag value")

// errPasswordFileRead indicates the password file could not be read.
var errPasswordFileRead = errors.New("failed to read password file")

// RegisterConnectionFlags adds the Portainer connection settings to the
// root command. Every flag falls back to a PORTAINER_* environment variable.
func RegisterConnectionFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringP("host", "H", envString("PORTAINER_HOST"), "portainer server host")
	flags.IntP("port", "p", envInt("PORTAINER_PORT"), "portainer server port")
	flags.String("scheme", envString("PORTAINER_SCHEME"), "connection scheme (http or https)")
	flags.IntP("endpoint", "e", envInt("PORTAINER_ENDPOINT_ID"), "portainer environment id")
	flags.StringP("username", "u", envString("PORTAINER_USERNAME"), "portainer username")
	flags.String("password", envString("PORTAINER_PASSWORD"), "portainer password")
	flags.String(
		"password-file",
		envString("PORTAINER_PASSWORD_FILE"),
		"file containing the portainer password",
	)
	flags.Duration(
		"timeout",
		envDuration("PORTAINER_TIMEOUT"),
		"timeout for requests against the portainer server",
	)
	flags.Bool(
		"tls-skip-verify",
		envBool("PORTAINER_TLS_SKIP_VERIFY"),
		"skip TLS certificate verification",
	)
}

// RegisterSystemFlags adds flags that modify the CLI's program flow to the
// root command, currently logging behavior.
func RegisterSystemFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.String(
		"log-level",
		envString("PORTAINERCTL_LOG_LEVEL"),
		"the maximum log level that will be written to STDERR (possible values: panic, fatal, error, warn, info, debug, trace)",
	)
	flags.String(
		"log-format",
		envString("PORTAINERCTL_LOG_FORMAT"),
		"sets what logging format to use (possible values: auto, logfmt, pretty, json)",
	)
	flags.BoolP("debug", "d", envBool("PORTAINERCTL_DEBUG"), "enable debug mode with verbose logging")
	flags.Bool("no-color", envBool("NO_COLOR"), "disable color output in logging")
}

// SetDefaults configures default values for environment variables.
// It ensures consistent fallback behavior when flags or environment
// variables are unset.
func SetDefaults() {
	viper.AutomaticEnv()
	viper.SetDefault("PORTAINER_PORT", defaultPort)
	viper.SetDefault("PORTAINER_SCHEME", "https")
	viper.SetDefault("PORTAINER_ENDPOINT_ID", 1)
	viper.SetDefault("PORTAINERCTL_LOG_LEVEL", "info")
	viper.SetDefault("PORTAINERCTL_LOG_FORMAT", "auto")
}

// ClientOptions assembles client.Options from the parsed flags, reading the
// password from a file when --password-file is set.
func ClientOptions(cmd *cobra.Command) (client.Options, error) {
	flags := cmd.PersistentFlags()

	host, err := flags.GetString("host")
	if err != nil {
		return client.Options{}, fmt.Errorf("%w: %w", errFlagRead, err)
	}

	port, err := flags.GetInt("port")
	if err != nil {
		return client.Options{}, fmt.Errorf("%w: %w", errFlagRead, err)
	}

	scheme, err := flags.GetString("scheme")
	if err != nil {
		return client.Options{}, fmt.Errorf("%w: %w", errFlagRead, err)
	}

	endpointID, err := flags.GetInt("endpoint")
	if err != nil {
		return client.Options{}, fmt.Errorf("%w: %w", errFlagRead, err)
	}

	username, err := flags.GetString("username")
	if err != nil {
		return client.Options{}, fmt.Errorf("%w: %w", errFlagRead, err)
	}

	password, err := readPassword(flags)
	if err != nil {
		return client.Options{}, err
	}

	timeout, err := flags.GetDuration("timeout")
	if err != nil {
		return client.Options{}, fmt.Errorf("%w: %w", errFlagRead, err)
	}

	skipVerify, err := flags.GetBool("tls-skip-verify")
	if err != nil {
		return client.Options{}, fmt.Errorf("%w: %w", errFlagRead, err)
	}

	return client.Options{
		Host:               host,
		Port:               port,
		Scheme:             scheme,
		EndpointID:         endpointID,
		Username:           username,
		Password:           password,
		Timeout:            timeout,
		InsecureSkipVerify: skipVerify,
	}, nil
}

// readPassword resolves the password flag, preferring the password file
// when one is configured.
func readPassword(flags *pflag.FlagSet) (string, error) {
	passwordFile, err := flags.GetString("password-file")
	if err != nil {
		return "", fmt.Errorf("%w: %w", errFlagRead, err)
	}

	if passwordFile != "" {
		content, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("%w: %w", errPasswordFileRead, err)
		}

		return strings.TrimSpace(string(content)), nil
	}

	password, err := flags.GetString("password")
	if err != nil {
		return "", fmt.Errorf("%w: %w", errFlagRead, err)
	}

	return password, nil
}

// SetupLogging configures logrus from the log-level, log-format, debug, and
// no-color flags, returning an error on invalid values.
func SetupLogging(flags *pflag.FlagSet) error {
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return fmt.Errorf("%w: %w", errFlagRead, err)
	}

	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return fmt.Errorf("%w: %w", errFlagRead, err)
	}

	if err := configureLogFormat(logFormat, noColor); err != nil {
		return err
	}

	rawLogLevel, err := flags.GetString("log-level")
	if err != nil {
		return fmt.Errorf("%w: %w", errFlagRead, err)
	}

	if debug, _ := flags.GetBool("debug"); debug {
		rawLogLevel = "debug"
	}

	logLevel, err := logrus.ParseLevel(rawLogLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	logrus.SetLevel(logLevel)

	return nil
}

// configureLogFormat sets the logrus formatter based on the specified
// format and color preference. It returns an error if the format is invalid.
func configureLogFormat(logFormat string, noColor bool) error {
	switch strings.ToLower(logFormat) {
	case "auto":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors:             noColor,
			EnvironmentOverrideColors: true,
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "logfmt":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	case "pretty":
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !noColor,
			FullTimestamp: false,
		})
	default:
		return fmt.Errorf("%w: %s", errInvalidLogFormat, logFormat)
	}

	return nil
}

// envString retrieves a string value from an environment variable via Viper.
// It binds the key to the environment and returns its value.
func envString(key string) string {
	viper.MustBindEnv(key)

	return viper.GetString(key)
}

// envInt retrieves an integer value from an environment variable via Viper.
// It binds the key to the environment and returns its value.
func envInt(key string) int {
	viper.MustBindEnv(key)

	return viper.GetInt(key)
}

// envBool retrieves a boolean value from an environment variable via Viper.
// It binds the key to the environment and returns its value.
func envBool(key string) bool {
	viper.MustBindEnv(key)

	return viper.GetBool(key)
}

// envDuration retrieves a duration value from an environment variable via Viper.
// It binds the key to the environment and returns its value.
func envDuration(key string) time.Duration {
	viper.MustBindEnv(key)

	return viper.GetDuration(key)
}
