// Package response はgardenerの全ルートが返す共通レスポンスエンベロープを提供する。
//
// 呼び出し元はHTTPステータスではなくボディの status を見て成否を判断する。
// そのためエラー時もHTTP 200で {"status":"Error","message":...} を返す。
package response
