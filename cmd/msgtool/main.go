package main

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ZentaChain/zentalk-msgcore/pkg/config"
	"github.com/ZentaChain/zentalk-msgcore/pkg/crypto"
	"github.com/ZentaChain/zentalk-msgcore/pkg/message"
	"github.com/ZentaChain/zentalk-msgcore/pkg/protocol"
	"github.com/ZentaChain/zentalk-msgcore/pkg/storage"
)

const usage = `usage: msgtool <command> [flags]

commands:
  genkey   create an RSA-4096 key pair
  encrypt  seal a message for a recipient and print its record
  decrypt  open a sealed record with the recipient key
  show     print stored records
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "genkey":
		err = runGenKey(args)
	case "encrypt":
		err = runEncrypt(args)
	case "decrypt":
		err = runDecrypt(args)
	case "show":
		err = runShow(args)
	case "-h", "-help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "msgtool %s: %v\n", os.Args[1], err)
		if code := message.CodeOf(err); code != 0 {
			fmt.Fprintf(os.Stderr, "error code %d (%s)\n", code, message.KindOf(err))
		}
		os.Exit(1)
	}
}

func runGenKey(args []string) error {
	fs := flag.NewFlagSet("genkey", flag.ContinueOnError)
	out := fs.String("out", "node.pem", "Private key output path, the public key goes to <out>.pub")
	passphrase := fs.String("passphrase", "", "Encrypt the private key with this passphrase")
	if err := fs.Parse(args); err != nil {
		return err
	}

	privateKey, err := crypto.GenerateRSAKeyPair()
	if err != nil {
		return err
	}

	var pass []byte
	if *passphrase != "" {
		pass = []byte(*passphrase)
	}
	pemData, err := crypto.ExportPrivateKeyPEM(privateKey, pass)
	if err != nil {
		return err
	}
	if err := crypto.SaveKeyToFile(*out, pemData); err != nil {
		return err
	}

	pubPEM, err := crypto.ExportPublicKeyPEM(&privateKey.PublicKey)
	if err != nil {
		return err
	}
	if err := crypto.SaveKeyToFile(*out+".pub", pubPEM); err != nil {
		return err
	}

	fmt.Printf("private key: %s\npublic key:  %s.pub\n", *out, *out)
	return nil
}

func runEncrypt(args []string) error {
	fs := flag.NewFlagSet("encrypt", flag.ContinueOnError)
	keyPath := fs.String("key", "", "Sender private key")
	passphrase := fs.String("passphrase", "", "Sender private key passphrase")
	toPath := fs.String("to", "", "Recipient public key")
	src := fs.String("src", "", "Source node id")
	dst := fs.String("dst", "", "Destination node id")
	subject := fs.String("subject", "", "Message subject")
	text := fs.String("text", "", "Message text, read from stdin when empty")
	nick := fs.String("nick", "", "Sender nickname")
	ignore := fs.Bool("ignore", false, "Ask the recipient to discard the message silently")
	dbPath := fs.String("db", "", "Also save the record to this message database")
	verbose := fs.Bool("v", false, "Trace checksum inputs, key material included")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *keyPath == "" || *toPath == "" || *dst == "" {
		return errors.New("-key, -to and -dst are required")
	}

	logger, err := newLogger(*verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	key, err := loadPrivateKey(*keyPath, *passphrase)
	if err != nil {
		return err
	}
	dstPub, err := os.ReadFile(*toPath)
	if err != nil {
		return err
	}

	body := *text
	if body == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		body = strings.TrimSuffix(string(data), "\n")
	}

	m := message.New()
	m.SetLogger(logger)
	m.SetTrace(*verbose)
	m.SetSrcNodeID(*src)
	m.SetDstNodeID(*dst)
	m.SetDstSslPubKey(dstPub)
	m.SetSubject(*subject)
	m.SetText(body)
	m.SetSrcUserNickname(*nick)
	m.SetIgnore(*ignore)
	m.SetEncryptionMode(protocol.EncryptionModeDestination)
	m.SetStatus(protocol.StatusOrigin)

	if err := m.Encrypt(key); err != nil {
		return err
	}

	if *dbPath != "" {
		srcPub, err := crypto.ExportPublicKeyPEM(&key.PublicKey)
		if err != nil {
			return err
		}
		if err := saveToDB(*dbPath, m, srcPub); err != nil {
			return err
		}
	}

	return printJSON(m.Record())
}

func runDecrypt(args []string) error {
	fs := flag.NewFlagSet("decrypt", flag.ContinueOnError)
	keyPath := fs.String("key", "", "Recipient private key")
	passphrase := fs.String("passphrase", "", "Recipient private key passphrase")
	fromPath := fs.String("from", "", "Sender public key, optional with -db when the store holds it")
	in := fs.String("in", "-", "Record JSON file, - for stdin")
	dbPath := fs.String("db", "", "Read the record from this message database instead of -in")
	id := fs.String("id", "", "Message id to read with -db")
	verbose := fs.Bool("v", false, "Trace checksum inputs, key material included")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *keyPath == "" {
		return errors.New("-key is required")
	}

	logger, err := newLogger(*verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	key, err := loadPrivateKey(*keyPath, *passphrase)
	if err != nil {
		return err
	}

	var m *message.Message
	if *dbPath != "" {
		m, err = loadFromDB(*dbPath, *id)
	} else {
		m, err = readRecord(*in)
	}
	if err != nil {
		return err
	}

	if *fromPath != "" {
		srcPub, err := os.ReadFile(*fromPath)
		if err != nil {
			return err
		}
		m.SetSrcSslKeyPub(srcPub)
	}

	// the checksum binds the recipient key, which is our own
	ownPub, err := crypto.ExportPublicKeyPEM(&key.PublicKey)
	if err != nil {
		return err
	}
	m.SetDstSslPubKey(ownPub)
	m.SetLogger(logger)
	m.SetTrace(*verbose)

	text, err := m.Decrypt(key)
	if err != nil {
		return err
	}

	fmt.Printf("from:    %s (%s)\n", m.SrcNodeID(), m.SrcUserNickname())
	fmt.Printf("subject: %s\n", m.Subject())
	if m.Ignore() {
		fmt.Println("ignore:  true")
	}
	fmt.Println()
	fmt.Println(text)
	return nil
}

func runShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	dbPath := fs.String("db", "", "Message database")
	id := fs.String("id", "", "Show a single message")
	status := fs.String("status", "", "Only messages in this status")
	dst := fs.String("dst", "", "Only messages for this destination node")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbPath == "" {
		return errors.New("-db is required")
	}

	db, err := storage.NewMessageDB(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if *id != "" {
		m, err := db.GetMessage(*id)
		if err != nil {
			return err
		}
		return printJSON(m.Record())
	}

	st, err := protocol.ParseStatus(*status)
	if err != nil {
		return err
	}
	messages, err := db.ListMessages(storage.ListFilter{Status: st, DstNodeID: *dst})
	if err != nil {
		return err
	}

	records := make([]message.Record, 0, len(messages))
	for _, m := range messages {
		records = append(records, m.Record())
	}
	return printJSON(records)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := config.Default()
	cfg.LogLevel = "warn"
	if verbose {
		cfg.LogLevel = "debug"
	}
	return config.NewLogger(cfg)
}

func loadPrivateKey(path, passphrase string) (*rsa.PrivateKey, error) {
	pemData, err := crypto.LoadKeyFromFile(path)
	if err != nil {
		return nil, err
	}
	return crypto.LoadPrivateKey(pemData, []byte(passphrase))
}

func readRecord(path string) (*message.Message, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var rec message.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("record is not valid JSON: %w", err)
	}
	return message.FromRecord(rec)
}

func saveToDB(path string, m *message.Message, srcPub []byte) error {
	db, err := storage.NewMessageDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveMessage(m); err != nil {
		return err
	}
	return db.SaveSenderKey(m.ID(), srcPub)
}

func loadFromDB(path, id string) (*message.Message, error) {
	if id == "" {
		return nil, errors.New("-id is required with -db")
	}

	db, err := storage.NewMessageDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return db.GetMessage(id)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
