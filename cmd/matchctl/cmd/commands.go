package cmd

import (
	"github.com/spf13/cobra"

	"ledger-matching-backend/internal/repository"
	"ledger-matching-backend/internal/services/matching"
	"ledger-matching-backend/internal/services/reconciliation"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Print ranked ledger entry suggestions",
	Long: `Suggest scores ledger entries for one transaction, or for the most
recently posted imported transactions when --transaction-id is omitted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		txnID, _ := cmd.Flags().GetString("transaction-id")
		limit, _ := cmd.Flags().GetInt("limit")

		bundles, err := a.Generator.Suggest(cmd.Context(), txnID, matching.ClampLimit(limit))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]interface{}{"matches": bundles})
	},
}

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Link a transaction to a ledger entry",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		txnID, _ := cmd.Flags().GetString("transaction-id")
		entryID, _ := cmd.Flags().GetString("ledger-entry-id")
		reconciled, _ := cmd.Flags().GetBool("reconciled")
		reason, _ := cmd.Flags().GetString("reason")

		res, err := a.Reconciler.CommitMatch(cmd.Context(), reconciliation.CommitRequest{
			TransactionID:  txnID,
			LedgerEntryID:  entryID,
			MarkReconciled: reconciled,
			Reason:         reason,
			Actor:          actorFlag(),
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var automatchCmd = &cobra.Command{
	Use:   "automatch",
	Short: "Commit high-confidence matches for imported transactions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		res, err := a.Reconciler.RunAutoMatch(cmd.Context(), limit, actorFlag())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Replay the audit log and restore missing links",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		res, err := a.Reconciler.RepairFromAudit(cmd.Context(), actorFlag(), limit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		if err := repository.Migrate(a.Store.DB()); err != nil {
			return err
		}
		cmd.Println("schema up to date")
		return nil
	},
}

func init() {
	suggestCmd.Flags().String("transaction-id", "", "transaction to score (default: recent imported transactions)")
	suggestCmd.Flags().Int("limit", matching.DefaultLimit, "suggestions per transaction (max 20)")

	commitCmd.Flags().String("transaction-id", "", "transaction id (required)")
	commitCmd.Flags().String("ledger-entry-id", "", "ledger entry id (required)")
	commitCmd.Flags().Bool("reconciled", false, "mark the transaction reconciled")
	commitCmd.Flags().String("reason", "", "reason recorded in the audit log")
	_ = commitCmd.MarkFlagRequired("transaction-id")
	_ = commitCmd.MarkFlagRequired("ledger-entry-id")

	automatchCmd.Flags().Int("limit", 0, "transactions to scan (default from config, max 100)")

	repairCmd.Flags().Int("limit", 0, "audit records to replay (0 for all)")

	rootCmd.AddCommand(suggestCmd, commitCmd, automatchCmd, repairCmd, migrateCmd)
}
