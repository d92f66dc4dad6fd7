package cli

import (
	"fmt"
	"os"

	"lojaonline/internal/config"

	"github.com/spf13/cobra"
)

// CertOptions holds flags for the cert command.
type CertOptions struct {
	*RootOptions
	Hosts []string
}

// NewCertCommand creates the cert command.
func NewCertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cert",
		Short: "Write a self-signed certificate for local HTTPS",
		Long: `Write a self-signed certificate and key to the paths configured in
tls.cert_file and tls.key_file. serve loads them when self-signed TLS is on.

Example:
  loja cert --host 192.168.1.10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			return writeCertFiles(cfg.TLS.CertFile, cfg.TLS.KeyFile, opts.Hosts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Hosts, "host", nil, "extra host name or IP to include (repeatable)")

	return cmd
}

func writeCertFiles(certFile, keyFile string, hosts []string, cmd *cobra.Command) error {
	certPEM, keyPEM, err := selfSignedPEM(hosts)
	if err != nil {
		return fmt.Errorf("generate certificate: %w", err)
	}
	if err := os.WriteFile(certFile, certPEM, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", certFile, err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", keyFile, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "certificate written: %s and %s\n", certFile, keyFile)
	return nil
}
