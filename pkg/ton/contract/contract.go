package contract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// codeTag prefixes code cells that identify a host-implemented contract.
const codeTag = 0xc0de

// Code names a contract implementation and its version. Its cell form is
// what ends up in StateInit.Code, so two versions derive different addresses.
type Code struct {
	Name    string
	Version *semver.Version
}

func NewCode(name, version string) (Code, error) {
	if name == "" || strings.ContainsAny(name, " @") {
		return Code{}, fmt.Errorf("invalid contract name %q", name)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return Code{}, fmt.Errorf("invalid version for %s: %w", name, err)
	}
	return Code{Name: name, Version: v}, nil
}

func MustNewCode(name, version string) Code {
	c, err := NewCode(name, version)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Code) Cell() *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(codeTag, 16).
		MustStoreStringSnake(c.Name + "@" + c.Version.String()).
		EndCell()
}

// TypeAndVersion renders the code as "<Name> <semver>".
func (c Code) TypeAndVersion() string {
	return c.Name + " " + c.Version.String()
}

// ParseCode is the inverse of Code.Cell.
func ParseCode(c *cell.Cell) (Code, error) {
	if c == nil {
		return Code{}, errors.New("nil code cell")
	}
	s := c.BeginParse()
	tag, err := s.LoadUInt(16)
	if err != nil || tag != codeTag {
		return Code{}, errors.New("not a host contract code cell")
	}
	str, err := s.LoadStringSnake()
	if err != nil {
		return Code{}, fmt.Errorf("failed to load code name: %w", err)
	}
	name, version, ok := strings.Cut(str, "@")
	if !ok {
		return Code{}, fmt.Errorf("malformed code identifier %q", str)
	}
	return NewCode(name, version)
}

// ParseTypeAndVersion is the inverse of Code.TypeAndVersion.
func ParseTypeAndVersion(s string) (Code, error) {
	name, version, ok := strings.Cut(s, " ")
	if !ok {
		return Code{}, fmt.Errorf("malformed type and version %q", s)
	}
	return NewCode(name, version)
}

func StateInit(code, data *cell.Cell) *tlb.StateInit {
	return &tlb.StateInit{Code: code, Data: data}
}

// AddressOf derives the contract address of init on workchain.
func AddressOf(workchain int8, init *tlb.StateInit) (*address.Address, error) {
	c, err := tlb.ToCell(init)
	if err != nil {
		return nil, fmt.Errorf("failed to convert state init to cell: %w", err)
	}
	return address.NewAddress(0, byte(workchain), c.Hash()), nil
}
