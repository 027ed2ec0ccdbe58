package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/skiptrace-cli/internal/model"
	"github.com/sells-group/skiptrace-cli/internal/phone"
)

var lookupFirst, lookupLast string

var lookupCmd = &cobra.Command{
	Use:   "lookup <number>",
	Short: "Validate a single phone number through the cache and provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("lookup"); err != nil {
			return err
		}

		ctx := cmd.Context()
		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		e164, standard := phone.Normalize(args[0])
		if !standard {
			return eris.Errorf("non-standard number: %s", args[0])
		}

		cached, err := e.Store.FindLookupByNumber(ctx, e164)
		if err != nil {
			return err
		}
		if cached == nil {
			result, err := e.Lookup.Lookup(ctx, e164)
			if err != nil {
				return eris.Wrap(err, "lookup phone")
			}
			cached, err = e.Store.UpsertLookup(ctx, &model.Lookup{
				Number:         e164,
				CallerName:     result.CallerName,
				CallerType:     result.CallerType,
				Carrier:        result.Carrier,
				CountryCode:    result.CountryCode,
				NationalFormat: result.NationalFormat,
				Portable:       result.Portable,
				RecordType:     result.RecordType,
				Classification: string(phone.Classify(result.CallerName, lookupFirst, lookupLast)),
			})
			if err != nil {
				return err
			}
		}

		fmt.Printf("number:         %s\n", cached.Number)
		fmt.Printf("caller name:    %s\n", cached.CallerName)
		fmt.Printf("carrier:        %s\n", cached.Carrier)
		fmt.Printf("classification: %s\n", cached.Classification)
		return nil
	},
}

func init() {
	lookupCmd.Flags().StringVar(&lookupFirst, "first", "", "contact first name for caller-ID classification")
	lookupCmd.Flags().StringVar(&lookupLast, "last", "", "contact last name for caller-ID classification")
	rootCmd.AddCommand(lookupCmd)
}
