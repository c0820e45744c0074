// ast.go — statement and expression trees produced by the parser.
//
// Both node families are closed: the unexported marker methods keep other
// packages from adding variants, and the evaluator switches over the concrete
// pointer types exhaustively. Every node owns its children; the parser never
// shares a subtree between two parents.
package lox

// Expr is an expression node.
type Expr interface {
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	stmtNode()
}

type (
	// LiteralExpr is a constant folded in at parse time.
	LiteralExpr struct {
		Value Value
	}

	VariableExpr struct {
		Name Token
	}

	// AssignExpr rebinds the nearest frame that already defines Name.
	AssignExpr struct {
		Name  Token
		Value Expr
	}

	UnaryExpr struct {
		Op    Token // BANG or MINUS
		Right Expr
	}

	BinaryExpr struct {
		Op    Token
		Left  Expr
		Right Expr
	}

	// LogicalExpr short-circuits; Op.Type is AND or OR.
	LogicalExpr struct {
		Op    Token
		Left  Expr
		Right Expr
	}

	GroupingExpr struct {
		Inner Expr
	}

	// CallExpr keeps the closing paren for error positions.
	CallExpr struct {
		Callee Expr
		Paren  Token
		Args   []Expr
	}
)

func (*LiteralExpr) exprNode()  {}
func (*VariableExpr) exprNode() {}
func (*AssignExpr) exprNode()   {}
func (*UnaryExpr) exprNode()    {}
func (*BinaryExpr) exprNode()   {}
func (*LogicalExpr) exprNode()  {}
func (*GroupingExpr) exprNode() {}
func (*CallExpr) exprNode()     {}

type (
	ExpressionStmt struct {
		Expr Expr
	}

	PrintStmt struct {
		Expr Expr
	}

	// VarStmt always carries an initializer.
	VarStmt struct {
		Name Token
		Init Expr
	}

	BlockStmt struct {
		Stmts []Stmt
	}

	// IfStmt: Else is nil when absent.
	IfStmt struct {
		Cond Expr
		Then Stmt
		Else Stmt
	}

	WhileStmt struct {
		Cond Expr
		Body Stmt
	}

	FunctionStmt struct {
		Name   Token
		Params []Token
		Body   *BlockStmt
	}

	BreakStmt struct {
		Keyword Token
	}
)

func (*ExpressionStmt) stmtNode() {}
func (*PrintStmt) stmtNode()      {}
func (*VarStmt) stmtNode()        {}
func (*BlockStmt) stmtNode()      {}
func (*IfStmt) stmtNode()         {}
func (*WhileStmt) stmtNode()      {}
func (*FunctionStmt) stmtNode()   {}
func (*BreakStmt) stmtNode()      {}
