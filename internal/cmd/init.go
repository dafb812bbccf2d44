package cmd

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"keboola.io/project-restore/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap a configuration file for a local restore",
	Long: `Writes a config.yml into the data directory.

The command prompts for the backup location and its credentials. The generated
configuration has dryRun enabled; review the output of a first run before
switching it off.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}

		configPath := filepath.Join(env.DataDir, "config.yml")
		for _, name := range []string{"config.json", "config.yml", "config.yaml"} {
			path := filepath.Join(env.DataDir, name)
			if exists, err := afero.Exists(appFs, path); err != nil {
				return fmt.Errorf("failed to check %s: %w", path, err)
			} else if exists {
				return fmt.Errorf("a config file already exists at %s", path)
			}
		}

		p := &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout()}
		params, err := promptParameters(p)
		if err != nil {
			return err
		}
		if err := params.Validate(); err != nil {
			return err
		}

		data, err := yaml.Marshal(&config.Config{Parameters: *params})
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		if err := appFs.MkdirAll(env.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", env.DataDir, err)
		}
		if err := afero.WriteFile(appFs, configPath, data, 0600); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote config to %s\n", configPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func promptParameters(p *prompter) (*config.Parameters, error) {
	dryRun := true
	params := &config.Parameters{DryRun: &dryRun}

	backend, err := p.withDefault("Backup storage (s3/abs/gcs)", "s3")
	if err != nil {
		return nil, err
	}

	switch config.BackendKind(strings.ToLower(backend)) {
	case config.BackendS3:
		s3 := &config.S3{}
		if s3.BackupURI, err = p.required("Backup URI"); err != nil {
			return nil, err
		}
		if s3.AccessKeyID, err = p.required("Access key ID"); err != nil {
			return nil, err
		}
		if s3.SecretAccessKey, err = p.required("Secret access key"); err != nil {
			return nil, err
		}
		if s3.SessionToken, err = p.required("Session token"); err != nil {
			return nil, err
		}
		params.S3 = s3
	case config.BackendABS:
		abs := &config.ABS{}
		if abs.Container, err = p.required("Container"); err != nil {
			return nil, err
		}
		if abs.ConnectionString, err = p.required("Connection string"); err != nil {
			return nil, err
		}
		params.ABS = abs
	case config.BackendGCS:
		gcs := &config.GCS{Credentials: &config.GCSCredentials{}}
		if gcs.BackupURI, err = p.required("Backup URI"); err != nil {
			return nil, err
		}
		if gcs.Bucket, err = p.required("Bucket"); err != nil {
			return nil, err
		}
		if gcs.ProjectID, err = p.required("Project ID"); err != nil {
			return nil, err
		}
		if gcs.Credentials.AccessToken, err = p.required("Access token"); err != nil {
			return nil, err
		}
		if gcs.Credentials.TokenType, err = p.withDefault("Token type", "Bearer"); err != nil {
			return nil, err
		}
		if gcs.Credentials.ExpiresIn, err = p.intWithDefault("Token expires in (seconds)", 3600); err != nil {
			return nil, err
		}
		params.GCS = gcs
	default:
		return nil, fmt.Errorf("unsupported backup storage: %s", backend)
	}

	encrypted, err := p.withDefault("Is the backup encrypted? (yes/no)", "no")
	if err != nil {
		return nil, err
	}
	if strings.ToLower(encrypted) == "yes" {
		key, err := p.required("Age private key")
		if err != nil {
			return nil, err
		}
		params.Encryption = &config.Encryption{PrivateKey: key}
	}

	return params, nil
}

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// ask prints the label and returns the trimmed answer.
func (p *prompter) ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	input, err := p.in.ReadString('\n')
	if err != nil && !(err == io.EOF && input != "") {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(input), nil
}

// required asks until it gets a non-empty answer.
func (p *prompter) required(label string) (string, error) {
	for {
		input, err := p.ask(label)
		if err != nil || input != "" {
			return input, err
		}
	}
}

// withDefault asks for input, providing a default if input is empty.
func (p *prompter) withDefault(label, defaultValue string) (string, error) {
	input, err := p.ask(fmt.Sprintf("%s (%s)", label, defaultValue))
	if err != nil {
		return "", err
	}
	if input == "" {
		return defaultValue, nil
	}
	return input, nil
}

func (p *prompter) intWithDefault(label string, defaultValue int64) (int64, error) {
	valStr, err := p.withDefault(label, strconv.FormatInt(defaultValue, 10))
	if err != nil {
		return 0, err
	}
	val, err := strconv.ParseInt(valStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number provided: %q", valStr)
	}
	return val, nil
}
