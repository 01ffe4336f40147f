package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one simulation against a running service",
	Long: `Build a single /simulate request from flags (or from a JSON file via
--file) and POST it to a running simulation service, printing the
decoded response.`,
	RunE: runSimulate,
}

var (
	simFile        string
	simSender      string
	simTo          string
	simData        string
	simValue       string
	simGasLimit    uint64
	simTrackTokens []string
	simPallet      string
	simMethod      string
	simArgsJSON    string
	simRawHex      string
	simTrackAssets []string
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simFile, "file", "", "path to a JSON file holding the full request body")
	simulateCmd.Flags().StringVar(&simSender, "sender", "", "sender address")
	simulateCmd.Flags().StringVar(&simTo, "to", "", "EVM: recipient/contract address")
	simulateCmd.Flags().StringVar(&simData, "data", "", "EVM: call data, hex")
	simulateCmd.Flags().StringVar(&simValue, "value", "", "EVM: native value to send, decimal string")
	simulateCmd.Flags().Uint64Var(&simGasLimit, "gas-limit", 0, "EVM: gas limit override")
	simulateCmd.Flags().StringSliceVar(&simTrackTokens, "track-token", nil, "EVM: additional ERC20 address to track (repeatable)")
	simulateCmd.Flags().StringVar(&simPallet, "pallet", "", "Runtime: pallet name")
	simulateCmd.Flags().StringVar(&simMethod, "method", "", "Runtime: call method name")
	simulateCmd.Flags().StringVar(&simArgsJSON, "args", "", "Runtime: call arguments as a JSON array")
	simulateCmd.Flags().StringVar(&simRawHex, "raw-hex", "", "Runtime: pre-built extrinsic call bytes, hex")
	simulateCmd.Flags().StringSliceVar(&simTrackAssets, "track-asset", nil, "Runtime: additional asset ID to track (repeatable)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	body, err := buildSimulateBody()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	apiHost := viper.GetString("server.host")
	if apiHost == "" || apiHost == "0.0.0.0" {
		apiHost = "localhost"
	}
	apiPort := viper.GetInt("server.port")
	if apiPort == 0 {
		apiPort = 8080
	}
	url := fmt.Sprintf("http://%s:%d/simulate", apiHost, apiPort)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	fmt.Printf("HTTP %d\n%s\n", resp.StatusCode, pretty.String())
	return nil
}

func buildSimulateBody() (map[string]interface{}, error) {
	if simFile != "" {
		raw, err := os.ReadFile(simFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", simFile, err)
		}
		var body map[string]interface{}
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, fmt.Errorf("invalid JSON in %s: %w", simFile, err)
		}
		return body, nil
	}

	if strings.TrimSpace(simSender) == "" {
		return nil, fmt.Errorf("--sender is required")
	}

	body := map[string]interface{}{"sender": simSender}
	if len(simTrackTokens) > 0 {
		body["trackTokens"] = simTrackTokens
	}
	if len(simTrackAssets) > 0 {
		body["trackAssets"] = simTrackAssets
	}

	hasEVM := simTo != ""
	hasRuntime := simPallet != "" || simRawHex != ""
	if hasEVM == hasRuntime {
		return nil, fmt.Errorf("specify either --to (EVM) or --pallet/--raw-hex (runtime)")
	}

	if hasEVM {
		tx := map[string]interface{}{"to": simTo}
		if simData != "" {
			tx["data"] = simData
		}
		if simValue != "" {
			tx["value"] = simValue
		}
		if simGasLimit != 0 {
			tx["gasLimit"] = simGasLimit
		}
		body["transaction"] = tx
		return body, nil
	}

	ext := map[string]interface{}{}
	if simRawHex != "" {
		ext["rawHex"] = simRawHex
	} else {
		ext["pallet"] = simPallet
		ext["method"] = simMethod
		if simArgsJSON != "" {
			var parsedArgs []interface{}
			if err := json.Unmarshal([]byte(simArgsJSON), &parsedArgs); err != nil {
				return nil, fmt.Errorf("invalid --args JSON: %w", err)
			}
			ext["args"] = parsedArgs
		}
	}
	body["extrinsic"] = ext
	return body, nil
}
