package i18n

var ptBRCatalog = NewCatalog("pt-BR", map[Code]string{
	CodeUnknown:                "Ocorreu um erro inesperado",
	CodeNotFound:               "O registro solicitado não foi encontrado",
	CodeInvalidTransition:      "Não é possível mover de {{.From}} para {{.To}}",
	CodePermissionDenied:       "Você não tem permissão para executar esta ação",
	CodeValidationFailed:       "A solicitação não passou na validação: {{.Detail}}",
	CodeConcurrentModification: "O registro mudou durante a solicitação; atualize e tente novamente",
	CodeAlreadyResolved:        "Esta solicitação de aprovação já foi resolvida",
	CodeUnauthenticated:        "É necessário entrar para executar esta ação",
	CodeBadRequest:             "A solicitação não pôde ser entendida",
})
